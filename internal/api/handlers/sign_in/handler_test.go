package sign_in

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-SaveSync/internal/auth"
	"github.com/m04kA/SMC-SaveSync/pkg/logger"
)

type fakeSession struct {
	signedIn []auth.Identity
}

func (s *fakeSession) SignIn(id auth.Identity) error {
	s.signedIn = append(s.signedIn, id)
	return nil
}

type fakeDrainer struct {
	reasons []string
}

func (d *fakeDrainer) RequestDrain(reason string) {
	d.reasons = append(d.reasons, reason)
}

func TestHandle_DrainsAfterSignIn(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantReasons []string
	}{
		{name: "signed in", body: `{"userId":"provider-42"}`, wantStatus: http.StatusNoContent, wantReasons: []string{"sign-in"}},
		{name: "empty user", body: `{"userId":""}`, wantStatus: http.StatusBadRequest},
		{name: "broken body", body: `{`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{}
			drainer := &fakeDrainer{}
			h := NewHandler(session, drainer, logger.Nop())

			req := httptest.NewRequest(http.MethodPut, "/api/v1/session", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Handle(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantReasons, drainer.reasons)
			assert.Len(t, session.signedIn, len(tt.wantReasons))
		})
	}
}
