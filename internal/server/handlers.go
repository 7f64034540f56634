package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/menta2k/parkwise/pkg/recommend"
	"github.com/menta2k/parkwise/pkg/render"
	"github.com/menta2k/parkwise/pkg/types"
)

type locateRequest struct {
	PhotoDataURI string `json:"photoDataUri"`
}

// locateResponse mirrors the {data, error} envelope; exactly one side is set
type locateResponse struct {
	Data  *types.SpotLocation `json:"data"`
	Error *string             `json:"error"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listSpots(c *gin.Context) {
	c.JSON(http.StatusOK, s.spots)
}

func (s *Server) recommended(c *gin.Context) {
	prefs, err := parsePreferences(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommended": recommend.Recommend(s.spots, prefs).Sorted()})
}

func (s *Server) analytics(c *gin.Context) {
	c.JSON(http.StatusOK, s.report)
}

func (s *Server) lotMap(c *gin.Context) {
	prefs, err := parsePreferences(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img := render.LotMap(s.spots, recommend.Recommend(s.spots, prefs), render.DefaultOptions())

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	if err := render.Encode(c.Writer, img, "png", 0); err != nil {
		_ = c.Error(err)
	}
}

func (s *Server) locate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes)

	var req locateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeLocateError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit))
			return
		}
		writeLocateError(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	if s.pipeline == nil {
		writeLocateError(c, http.StatusServiceUnavailable, "Spot locator is not configured.")
		return
	}

	outcome := s.pipeline.Locate(c.Request.Context(), req.PhotoDataURI)
	if !outcome.OK() {
		writeLocateError(c, statusFor(outcome.ErrorKind), outcome.ErrorMessage)
		return
	}
	c.JSON(http.StatusOK, locateResponse{
		Data: &types.SpotLocation{LocationDescription: outcome.LocationDescription},
	})
}

func writeLocateError(c *gin.Context, status int, msg string) {
	c.JSON(status, locateResponse{Error: &msg})
}

func statusFor(kind types.ErrorKind) int {
	switch kind {
	case types.InvalidFormat:
		return http.StatusBadRequest
	case types.PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusBadGateway
	}
}

func parsePreferences(c *gin.Context) (types.Preferences, error) {
	category, err := types.ParseVehicleCategory(c.Query("vehicleType"))
	if err != nil {
		return types.Preferences{}, err
	}
	covered, err := queryBool(c, "covered")
	if err != nil {
		return types.Preferences{}, err
	}
	nearExit, err := queryBool(c, "nearExit")
	if err != nil {
		return types.Preferences{}, err
	}
	return types.Preferences{
		VehicleCategory: category,
		CoveredOnly:     covered,
		NearExitOnly:    nearExit,
	}, nil
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q", key, v)
	}
	return b, nil
}
