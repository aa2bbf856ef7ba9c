package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yashrajoria/webook/middleware"
	"github.com/yashrajoria/webook/models"
	"github.com/yashrajoria/webook/services"
)

type UserController struct {
	service services.UserService
}

func NewUserController(service services.UserService) *UserController {
	return &UserController{service: service}
}

func (uc *UserController) GetUsers(c *gin.Context) {
	users, err := uc.service.ListUsers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns one account, or null when the id does not exist.
func (uc *UserController) GetUser(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	user, err := uc.service.GetUser(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser changes the role of an account.
func (uc *UserController) UpdateUser(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	var req models.UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := uc.service.UpdateRole(c.Request.Context(), middleware.GetUserID(c), id, req.Role); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully"})
}

func (uc *UserController) DeleteUser(c *gin.Context) {
	id, perr := ParseID(c, "id")
	if perr != nil {
		_ = c.Error(perr)
		return
	}
	if err := uc.service.DeleteUser(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
