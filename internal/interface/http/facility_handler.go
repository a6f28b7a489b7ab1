package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/savannahealth/mamatoto/internal/domain/entity"
	"github.com/savannahealth/mamatoto/internal/domain/repository"
	"github.com/savannahealth/mamatoto/pkg/helpers"
	"github.com/savannahealth/mamatoto/pkg/response"
)

// FacilityHandler serves read access to the facility registry.
type FacilityHandler struct {
	Facilities repository.FacilityRepository
	Redis      *redis.Client
	Logger     *logrus.Logger
}

func NewFacilityHandler(facilities repository.FacilityRepository, rdb *redis.Client, logger *logrus.Logger) *FacilityHandler {
	return &FacilityHandler{Facilities: facilities, Redis: rdb, Logger: logger}
}

type facilityProjection struct {
	KMHFLCode string `json:"kmhflCode"`
	Name      string `json:"name"`
	County    string `json:"county,omitempty"`
}

// GetByCode GET /api/facilities/:code
func (h *FacilityHandler) GetByCode(c *gin.Context) {
	code := c.Param("code")
	cacheKey := "facility:" + code

	if h.Redis != nil {
		var cached facilityProjection
		if ok, err := helpers.RedisGetJSON(c.Request.Context(), h.Redis, cacheKey, &cached); err == nil && ok {
			response.Success(c, http.StatusOK, cached, "")
			return
		}
	}

	f, err := h.Facilities.GetByCode(c.Request.Context(), code)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Error(c, http.StatusNotFound, "facility not found", nil)
		return
	case err != nil:
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("kmhfl_code", code).Error("facility lookup failed")
		}
		response.Error(c, http.StatusInternalServerError, "could not load facility", nil)
		return
	}

	proj := facilityView(*f)
	if h.Redis != nil {
		_ = helpers.RedisSetJSON(c.Request.Context(), h.Redis, cacheKey, proj, time.Hour)
	}
	response.Success(c, http.StatusOK, proj, "")
}

func facilityView(f entity.Facility) facilityProjection {
	return facilityProjection{KMHFLCode: f.KMHFLCode, Name: f.Name, County: f.County}
}
