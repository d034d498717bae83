package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"encantar/internal/dashboard/handler/mocks"
	"encantar/internal/dashboard/models"
	"encantar/internal/platform/logger"
	"encantar/internal/platform/middleware"
	"encantar/pkg/testutil"
)

func TestHandleStats(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	guarded := 0
	guards := middleware.Guards{Auth: func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			guarded++
			next.ServeHTTP(w, r)
		})
	}}
	r := chi.NewRouter()
	New(svc, logger.Discard(), guards).Register(r)

	svc.EXPECT().Stats(gomock.Any()).Return(&models.Stats{TotalRoutes: 2, RecentDeliveries: []models.RecentDelivery{}}, nil)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodGet, "/api/dashboard", nil))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, 2, testutil.DecodeData[models.Stats](t, rr).Data.TotalRoutes)
	assert.Equal(t, 1, guarded)
}
