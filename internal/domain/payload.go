package domain

import (
	"errors"
	"fmt"
	"time"
)

// Payload is the mutation carried by an operation.
// The set of implementations is closed: ProfilePayload, StatusPayload,
// AvailabilityPayload, PaymentPayload and SettingsPayload.
type Payload interface {
	OperationType() OperationType
	clone() Payload
}

// ErrInvalidSlot is returned when a weekly slot ends before it starts
var ErrInvalidSlot = errors.New("domain: slot end must be after start")

// ProfilePayload updates the provider's public profile
type ProfilePayload struct {
	DisplayName    string   `json:"displayName" validate:"required,min=2,max=80"`
	Bio            string   `json:"bio,omitempty" validate:"max=2000"`
	WhatsAppNumber string   `json:"whatsappNumber,omitempty" validate:"omitempty,e164"`
	Location       string   `json:"location,omitempty" validate:"max=200"`
	Languages      []string `json:"languages,omitempty" validate:"max=10,dive,required,max=32"`
	MassageTypes   []string `json:"massageTypes,omitempty" validate:"max=30,dive,required,max=64"`
	Pricing        *Pricing `json:"pricing,omitempty"`
}

// Pricing holds session prices in the smallest currency unit
type Pricing struct {
	Price60  int64 `json:"price60" validate:"gte=0"`
	Price90  int64 `json:"price90" validate:"gte=0"`
	Price120 int64 `json:"price120" validate:"gte=0"`
}

func (p *ProfilePayload) OperationType() OperationType { return OperationProfile }

func (p *ProfilePayload) clone() Payload {
	c := *p
	c.Languages = append([]string(nil), p.Languages...)
	c.MassageTypes = append([]string(nil), p.MassageTypes...)
	if p.Pricing != nil {
		pr := *p.Pricing
		c.Pricing = &pr
	}
	return &c
}

// ProviderStatus is the online status shown to customers
type ProviderStatus string

const (
	StatusAvailable ProviderStatus = "Available"
	StatusBusy      ProviderStatus = "Busy"
	StatusOffline   ProviderStatus = "Offline"
)

// StatusPayload changes the provider's online status
type StatusPayload struct {
	Status    ProviderStatus `json:"status" validate:"required,oneof=Available Busy Offline"`
	BusyUntil *time.Time     `json:"busyUntil,omitempty"`
}

func (p *StatusPayload) OperationType() OperationType { return OperationStatus }

func (p *StatusPayload) clone() Payload {
	c := *p
	if p.BusyUntil != nil {
		t := *p.BusyUntil
		c.BusyUntil = &t
	}
	return &c
}

// WeeklySlot is one recurring working window; Weekday 0 is Sunday
type WeeklySlot struct {
	Weekday int    `json:"weekday" validate:"gte=0,lte=6"`
	Start   string `json:"start" validate:"required,datetime=15:04"`
	End     string `json:"end" validate:"required,datetime=15:04"`
}

// AvailabilityPayload replaces the provider's weekly schedule
type AvailabilityPayload struct {
	Slots []WeeklySlot `json:"slots" validate:"max=70,dive"`
}

func (p *AvailabilityPayload) OperationType() OperationType { return OperationAvailability }

func (p *AvailabilityPayload) clone() Payload {
	return &AvailabilityPayload{Slots: append([]WeeklySlot(nil), p.Slots...)}
}

// Validate checks what struct tags cannot express
func (p *AvailabilityPayload) Validate() error {
	for i, s := range p.Slots {
		// HH:MM is zero-padded, so lexical order is chronological
		if s.End <= s.Start {
			return fmt.Errorf("%w: slot %d (%s-%s)", ErrInvalidSlot, i, s.Start, s.End)
		}
	}
	return nil
}

// PaymentPayload updates payout bank details
type PaymentPayload struct {
	BankName      string `json:"bankName" validate:"required,max=100"`
	AccountName   string `json:"accountName" validate:"required,max=100"`
	AccountNumber string `json:"accountNumber" validate:"required,numeric,min=6,max=34"`
}

func (p *PaymentPayload) OperationType() OperationType { return OperationPayment }

func (p *PaymentPayload) clone() Payload {
	c := *p
	return &c
}

// NotificationSettings toggles notification channels
type NotificationSettings struct {
	Push             bool `json:"push"`
	Email            bool `json:"email"`
	WhatsApp         bool `json:"whatsapp"`
	BookingReminders bool `json:"bookingReminders"`
}

// SettingsPayload updates dashboard preferences
type SettingsPayload struct {
	Language      string               `json:"language,omitempty" validate:"omitempty,oneof=en id"`
	Currency      string               `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Timezone      string               `json:"timezone,omitempty" validate:"omitempty,timezone"`
	Notifications NotificationSettings `json:"notifications"`
}

func (p *SettingsPayload) OperationType() OperationType { return OperationSettings }

func (p *SettingsPayload) clone() Payload {
	c := *p
	return &c
}

// NewPayload returns an empty payload of the concrete type for t
func NewPayload(t OperationType) (Payload, error) {
	switch t {
	case OperationProfile:
		return &ProfilePayload{}, nil
	case OperationStatus:
		return &StatusPayload{}, nil
	case OperationAvailability:
		return &AvailabilityPayload{}, nil
	case OperationPayment:
		return &PaymentPayload{}, nil
	case OperationSettings:
		return &SettingsPayload{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperationType, t)
	}
}
