package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/middleware"
	"github.com/dharmikvarsani/task-management/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AuthHandler serves login and session introspection.
type AuthHandler struct {
	db *gorm.DB
	// secureCookies sets the Secure flag on the session cookie; tied to the
	// deployment environment.
	secureCookies bool
}

// NewAuthHandler creates an AuthHandler over the given database handle.
func NewAuthHandler(db *gorm.DB, secureCookies bool) *AuthHandler {
	return &AuthHandler{db: db, secureCookies: secureCookies}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /api/auth/login.
// Verifies credentials and sets the session cookie on success.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. Email and password are required.",
		})
		return
	}

	var user models.User
	err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		} else {
			respondError(c, err)
		}
		return
	}

	if !user.IsActive || !auth.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(&user)
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("token", token, int(auth.TokenTTL.Seconds()), "/", "", h.secureCookies, true)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    summarize(&user),
	})
}

// Me handles GET /api/auth/me.
// Returns the current identity, or {"user": null} with 200 when the session
// token is missing, malformed, or expired.
func (h *AuthHandler) Me(c *gin.Context) {
	tokenString := middleware.ExtractToken(c)
	if tokenString == "" {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	claims, err := auth.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", claims.UserID).First(&user).Error; err != nil {
		c.JSON(http.StatusOK, gin.H{"user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
