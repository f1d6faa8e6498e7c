package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hvn/internal/name/handler/mocks"
	"hvn/internal/name/models"
	"hvn/internal/name/service"
	dErrors "hvn/pkg/domain-errors"
	"hvn/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/service-mocks.go -package=mocks Service

type NameHandlerSuite struct {
	suite.Suite
	now time.Time
}

func (s *NameHandlerSuite) SetupSuite() {
	s.now = time.Unix(1_700_000_000, 0).UTC()
}

func TestNameHandlerSuite(t *testing.T) {
	suite.Run(t, new(NameHandlerSuite))
}

func newTestHandler(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	New(mockService, logger).Register(r)
	return r, mockService
}

func (s *NameHandlerSuite) do(router chi.Router, method, path, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req = req.WithContext(requestcontext.WithTime(context.Background(), s.now))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *NameHandlerSuite) record() *models.NameRecord {
	expires := s.now.Add(365 * 24 * time.Hour)
	return &models.NameRecord{
		Label:        "luna",
		LabelDisplay: "Luna",
		Holder:       "0x1111111111111111111111111111111111111111",
		RegisteredAt: s.now,
		ExpiresAt:    expires,
		GraceEndsAt:  expires.Add(30 * 24 * time.Hour),
		ProfileCID:   "bafyprofile1",
	}
}

func registerBody() string {
	return `{"label":"Luna","tld":"heaven","holder":"0x1111111111111111111111111111111111111111",` +
		`"profileCid":"bafyprofile1","signature":"0xsig","nonce":"nonce-0001","timestamp":1700000000,"years":1}`
}

func (s *NameHandlerSuite) TestRegister() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Register(gomock.Any(), service.RegisterInput{
		Label:      "Luna",
		TLD:        "heaven",
		Holder:     "0x1111111111111111111111111111111111111111",
		ProfileCID: "bafyprofile1",
		Signature:  "0xsig",
		Nonce:      "nonce-0001",
		Timestamp:  1_700_000_000,
		Years:      1,
	}).Return(s.record(), nil)

	w := s.do(router, http.MethodPost, "/names/register", registerBody())

	require.Equal(s.T(), http.StatusCreated, w.Code)
	var resp NameResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "luna", resp.Label)
	assert.Equal(s.T(), "luna.heaven", resp.Name)
	assert.Equal(s.T(), "active", resp.Status)
}

func (s *NameHandlerSuite) TestRegisterValidation() {
	cases := []struct {
		name string
		body string
	}{
		{"missing label", `{"tld":"heaven","holder":"0x1","signature":"0xs","nonce":"n-00000001","timestamp":1}`},
		{"missing tld", `{"label":"luna","holder":"0x1","signature":"0xs","nonce":"n-00000001","timestamp":1}`},
		{"missing signature", `{"label":"luna","tld":"heaven","holder":"0x1","nonce":"n-00000001","timestamp":1}`},
		{"missing timestamp", `{"label":"luna","tld":"heaven","holder":"0x1","signature":"0xs","nonce":"n-00000001"}`},
		{"malformed json", `{"label":`},
		{"unknown field", `{"label":"luna","tld":"heaven","holder":"0x1","signature":"0xs","nonce":"n-00000001","timestamp":1,"extra":true}`},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			router, _ := newTestHandler(s.T())
			w := s.do(router, http.MethodPost, "/names/register", tc.body)
			assert.Equal(s.T(), http.StatusBadRequest, w.Code)
		})
	}
}

func (s *NameHandlerSuite) TestRegisterErrorMapping() {
	cases := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeReserved, http.StatusBadRequest},
		{dErrors.CodeBadSignature, http.StatusUnauthorized},
		{dErrors.CodeClockSkew, http.StatusUnauthorized},
		{dErrors.CodeAlreadyTaken, http.StatusConflict},
		{dErrors.CodeReplayDetected, http.StatusConflict},
		{dErrors.CodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.Run(string(tc.code), func() {
			router, svc := newTestHandler(s.T())
			svc.EXPECT().Register(gomock.Any(), gomock.Any()).
				Return(nil, dErrors.New(tc.code, "nope"))

			w := s.do(router, http.MethodPost, "/names/register", registerBody())

			assert.Equal(s.T(), tc.status, w.Code)
			var body map[string]string
			require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(s.T(), string(tc.code), body["error"])
		})
	}
}

func (s *NameHandlerSuite) TestRenew() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Renew(gomock.Any(), service.RenewInput{
		Label:     "luna",
		TLD:       "heaven",
		Signature: "0xsig",
		Nonce:     "nonce-0002",
		Timestamp: 1_700_000_000,
		Years:     2,
	}).Return(s.record(), nil)

	w := s.do(router, http.MethodPost, "/names/renew",
		`{"label":"luna","tld":"heaven","signature":"0xsig","nonce":"nonce-0002","timestamp":1700000000,"years":2}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *NameHandlerSuite) TestUpdate() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Update(gomock.Any(), gomock.Any()).Return(s.record(), nil)

	w := s.do(router, http.MethodPost, "/names/update",
		`{"label":"luna","tld":"heaven","profileCid":"bafy2","signature":"0xsig","nonce":"nonce-0003","timestamp":1700000000}`)
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *NameHandlerSuite) TestAvailable() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Available(gomock.Any(), "heaven", "luna").
		Return(service.AvailabilityResult{Available: true, Status: models.AvailabilityAvailable}, nil)

	w := s.do(router, http.MethodGet, "/names/available/luna?tld=heaven", "")

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp AvailabilityResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.Available)
	assert.Equal(s.T(), "available", resp.Status)
}

func (s *NameHandlerSuite) TestAvailableRequiresTld() {
	router, _ := newTestHandler(s.T())
	w := s.do(router, http.MethodGet, "/names/available/luna", "")
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *NameHandlerSuite) TestPrice() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Quote(gomock.Any(), "heaven", "luna", 2, true).
		Return(big.NewInt(80_000_000), nil)

	w := s.do(router, http.MethodGet, "/names/price/luna?tld=heaven&years=2&display=true", "")

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp PriceResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "80000000", resp.Price)
	assert.False(s.T(), resp.Free)
}

func (s *NameHandlerSuite) TestInfo() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Info(gomock.Any(), "heaven", "luna").
		Return(s.record(), models.NameStatusActive, nil)

	w := s.do(router, http.MethodGet, "/names/luna?tld=heaven", "")

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp NameResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "active", resp.Status)
	assert.Equal(s.T(), "bafyprofile1", resp.ProfileCID)
}

func (s *NameHandlerSuite) TestInfoNotFound() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Info(gomock.Any(), "heaven", "ghost").
		Return(nil, models.NameStatus(""), dErrors.New(dErrors.CodeNotFound, "name not registered"))

	w := s.do(router, http.MethodGet, "/names/ghost?tld=heaven", "")
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *NameHandlerSuite) TestReverse() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Reverse(gomock.Any(), "0x1111111111111111111111111111111111111111").
		Return(s.record(), nil)

	w := s.do(router, http.MethodGet, "/names/reverse/0x1111111111111111111111111111111111111111", "")

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp NameResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "luna", resp.Label)
	assert.Empty(s.T(), resp.Name)
}

func (s *NameHandlerSuite) TestTlds() {
	router, svc := newTestHandler(s.T())
	svc.EXPECT().Tlds(gomock.Any()).Return([]models.TldConfig{
		{Name: "heaven", Backend: models.BackendOffchain},
		{Name: "hl", Backend: models.BackendOnchain},
	})

	w := s.do(router, http.MethodGet, "/tlds", "")

	require.Equal(s.T(), http.StatusOK, w.Code)
	var resp TldsResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Tlds, 2)
	assert.Equal(s.T(), "heaven", resp.Tlds[0].Name)
}
