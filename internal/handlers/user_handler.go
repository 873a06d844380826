package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dharmikvarsani/task-management/internal/apperrors"
	"github.com/dharmikvarsani/task-management/internal/auth"
	"github.com/dharmikvarsani/task-management/internal/authz"
	"github.com/dharmikvarsani/task-management/internal/middleware"
	"github.com/dharmikvarsani/task-management/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserHandler serves the credential-store endpoints (manager user CRUD plus
// the tl developer roster).
type UserHandler struct {
	db *gorm.DB
}

// NewUserHandler creates a UserHandler over the given database handle.
func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// RegisterRequest represents the payload for creating a user.
type RegisterRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     models.Role `json:"role" binding:"required"`
	TeamLead string      `json:"teamLead"`
}

// UpdateUserRequest represents the payload for a partial user update.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Password *string      `json:"password"`
	Role     *models.Role `json:"role"`
	TeamLead *string      `json:"teamLead"`
	IsActive *bool        `json:"isActive"`
}

// findTeamLead resolves id to a user with role tl, or a ValidationError.
func (h *UserHandler) findTeamLead(id string) (*models.User, error) {
	var tl models.User
	if err := h.db.Where("id = ?", id).First(&tl).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewValidation("Team lead must reference a user with the tl role")
		}
		return nil, err
	}
	if tl.Role != models.RoleTL {
		return nil, apperrors.NewValidation("Team lead must reference a user with the tl role")
	}
	return &tl, nil
}

// Register handles POST /api/auth/register (manager only).
func (h *UserHandler) Register(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapManageUsers); err != nil {
		respondError(c, err)
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("All fields are required"))
		return
	}

	if !req.Role.Valid() {
		respondError(c, apperrors.NewValidation("Invalid role"))
		return
	}

	var teamLeadID *string
	if req.Role == models.RoleDeveloper {
		if req.TeamLead == "" {
			respondError(c, apperrors.NewValidation("Team lead is required for the developer role"))
			return
		}
		tl, err := h.findTeamLead(req.TeamLead)
		if err != nil {
			respondError(c, err)
			return
		}
		teamLeadID = &tl.ID
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	var count int64
	if err := h.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		respondError(c, err)
		return
	}
	if count > 0 {
		respondError(c, apperrors.ErrEmailTaken)
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user := models.User{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Email:      email,
		Password:   hashed,
		Role:       req.Role,
		TeamLeadID: teamLeadID,
		IsActive:   true,
	}
	if err := h.db.Create(&user).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    summarize(&user),
	})
}

// ListUsers handles GET /api/auth/register (manager only).
// Optional ?role= filter.
func (h *UserHandler) ListUsers(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapListUsers); err != nil {
		respondError(c, err)
		return
	}

	query := h.db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetUser handles GET /api/auth/register/:id.
// Managers read anyone; a tl reads self or their own developers; a developer
// reads only self.
func (h *UserHandler) GetUser(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.ErrNotFound)
		} else {
			respondError(c, err)
		}
		return
	}

	switch ident.Role {
	case models.RoleManager:
		// full visibility
	case models.RoleTL:
		ownDeveloper := user.TeamLeadID != nil && *user.TeamLeadID == ident.UserID
		if user.ID != ident.UserID && !ownDeveloper {
			respondError(c, apperrors.ErrForbidden)
			return
		}
	default:
		if user.ID != ident.UserID {
			respondError(c, apperrors.ErrForbidden)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateUser handles PUT /api/auth/register/:id (manager only).
// Mirrors the field-level validation of Register; switching role away from
// developer clears the team-lead reference.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapManageUsers); err != nil {
		respondError(c, err)
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.ErrNotFound)
		} else {
			respondError(c, err)
		}
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.NewValidation("Invalid request body"))
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		var count int64
		err := h.db.Model(&models.User{}).
			Where("email = ? AND id <> ?", email, user.ID).
			Count(&count).Error
		if err != nil {
			respondError(c, err)
			return
		}
		if count > 0 {
			respondError(c, apperrors.ErrEmailTaken)
			return
		}
		user.Email = email
	}

	if req.Role != nil {
		if !req.Role.Valid() {
			respondError(c, apperrors.NewValidation("Invalid role"))
			return
		}
		user.Role = *req.Role
	}

	if user.Role == models.RoleDeveloper {
		teamLead := ""
		if req.TeamLead != nil {
			teamLead = *req.TeamLead
		} else if user.TeamLeadID != nil {
			teamLead = *user.TeamLeadID
		}
		if teamLead == "" {
			respondError(c, apperrors.NewValidation("Team lead is required for the developer role"))
			return
		}
		tl, err := h.findTeamLead(teamLead)
		if err != nil {
			respondError(c, err)
			return
		}
		user.TeamLeadID = &tl.ID
	} else {
		user.TeamLeadID = nil
	}

	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if req.Password != nil {
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		user.Password = hashed
	}

	// Save with Select so a cleared team-lead reference persists as NULL.
	err := h.db.Model(&user).
		Select("name", "email", "password", "role", "team_lead_id", "is_active").
		Updates(map[string]any{
			"name":         user.Name,
			"email":        user.Email,
			"password":     user.Password,
			"role":         user.Role,
			"team_lead_id": user.TeamLeadID,
			"is_active":    user.IsActive,
		}).Error
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    user,
	})
}

// DeleteUser handles DELETE /api/auth/register/:id (manager only).
// Deletion is restricted while any task still references the user as assignor
// or assignee; history rows keep their user ids as audit data.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapManageUsers); err != nil {
		respondError(c, err)
		return
	}

	var user models.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, apperrors.ErrNotFound)
		} else {
			respondError(c, err)
		}
		return
	}

	var refs int64
	err := h.db.Model(&models.Task{}).
		Where("assigned_by_id = ? OR assigned_to_id = ?", user.ID, user.ID).
		Count(&refs).Error
	if err != nil {
		respondError(c, err)
		return
	}
	if refs > 0 {
		respondError(c, apperrors.ErrUserReferenced)
		return
	}

	if err := h.db.Delete(&user).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

// GetDevelopers handles GET /api/auth/register/developers (tl only).
// Returns the requesting team lead's own developers.
func (h *UserHandler) GetDevelopers(c *gin.Context) {
	ident := middleware.Identity(c)
	if ident == nil {
		respondError(c, apperrors.ErrUnauthorized)
		return
	}
	if err := authz.RequireCapability(ident.Role, authz.CapViewOwnDevelopers); err != nil {
		respondError(c, err)
		return
	}

	var developers []models.User
	err := h.db.Where("role = ? AND team_lead_id = ?", models.RoleDeveloper, ident.UserID).
		Find(&developers).Error
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]UserSummary, 0, len(developers))
	for i := range developers {
		resp = append(resp, summarize(&developers[i]))
	}

	c.JSON(http.StatusOK, gin.H{"users": resp})
}
