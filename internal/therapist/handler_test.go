package therapist

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDirectory struct {
	profiles map[string]*Profile
}

func (s *stubDirectory) GetProfile(ctx context.Context, code string) (*Profile, error) {
	if p, ok := s.profiles[code]; ok {
		return p, nil
	}
	return nil, ErrTherapistNotFound
}

func (s *stubDirectory) GetTimezone(ctx context.Context, code string) (string, error) {
	p, err := s.GetProfile(ctx, code)
	if err != nil {
		return "", err
	}
	return p.Timezone, nil
}

func setupRouter(d Directory) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	h := NewHandler(d)
	router.GET("/therapists/:code", h.GetTherapist)
	return router
}

func TestGetTherapist(t *testing.T) {
	router := setupRouter(&stubDirectory{profiles: map[string]*Profile{
		"ABC123": {Code: "ABC123", DisplayName: "Dr. Chen", Timezone: "America/Los_Angeles"},
	}})

	req := httptest.NewRequest("GET", "/therapists/ABC123", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var got Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Dr. Chen", got.DisplayName)
	assert.Equal(t, "America/Los_Angeles", got.Timezone)
}

func TestGetTherapistNotFound(t *testing.T) {
	router := setupRouter(&stubDirectory{profiles: map[string]*Profile{}})

	req := httptest.NewRequest("GET", "/therapists/NOPE", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}
