package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

func (s *Server) ListMakes(c *gin.Context) {
	resp, err := s.lookupRepo.ListMakes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListModels(c *gin.Context) {
	makeID, err := snowflake.ParseString(strings.TrimSpace(c.Query("make_id")))
	if err != nil || makeID == 0 {
		AbortWithError(c, newValidationError("make_id", "invalid_make_id", "invalid make_id"))
		return
	}

	resp, err := s.lookupRepo.ListModelsByMake(c.Request.Context(), makeID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListStatuses(c *gin.Context) {
	resp, err := s.lookupRepo.ListStatuses(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListVehicleTypes(c *gin.Context) {
	resp, err := s.lookupRepo.ListVehicleTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListFuelTypes(c *gin.Context) {
	resp, err := s.lookupRepo.ListFuelTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTransmissions(c *gin.Context) {
	resp, err := s.lookupRepo.ListTransmissions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDriveTypes(c *gin.Context) {
	resp, err := s.lookupRepo.ListDriveTypes(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
