package delivery

import (
	"net/http"
	"strconv"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"
	"github.com/FeruzyNtillah/my-e-commerce/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type UserHandler struct {
	useCase usecase.UserUseCase
	log     *logrus.Logger
	errorReporter
}

func NewUserHandler(uc usecase.UserUseCase, logger *logrus.Logger, production bool) *UserHandler {
	return &UserHandler{
		useCase:       uc,
		log:           logger,
		errorReporter: errorReporter{log: logger, production: production},
	}
}

func (h *UserHandler) RegisterRoutes(router gin.IRouter) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)

		me := authGroup.Group("", RequireAuth())
		me.GET("/me", h.Me)
		me.PUT("/updateprofile", h.UpdateProfile)
		me.PUT("/updatepassword", h.UpdatePassword)
	}

	users := router.Group("/users", RequireAuth())
	{
		users.GET("", h.ListUsers)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id/role", h.UpdateRole)
		users.DELETE("/:id", h.DeleteUser)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Avatar *string `json:"avatar"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type roleRequest struct {
	Role domain.Role `json:"role" binding:"required"`
}

func (h *UserHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "register", err)
		return
	}

	res, err := h.useCase.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, "register", err)
		return
	}

	h.log.Infof("Handler: User registered: ID %s", res.User.ID)
	SuccessResponse(c, http.StatusCreated, "User registered successfully", res)
}

func (h *UserHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "login", err)
		return
	}

	res, err := h.useCase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, "login", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Login successful", res)
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.useCase.Me(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, "get current user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update profile", err)
		return
	}

	user, err := h.useCase.UpdateProfile(c.Request.Context(), actorFrom(c), domain.ProfileUpdate{
		Name:   req.Name,
		Phone:  req.Phone,
		Avatar: req.Avatar,
	})
	if err != nil {
		h.fail(c, "update profile", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Profile updated successfully", user)
}

func (h *UserHandler) UpdatePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update password", err)
		return
	}

	if err := h.useCase.UpdatePassword(c.Request.Context(), actorFrom(c), req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(c, "update password", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Password updated successfully", nil)
}

// pagination reads limit/offset; bad values fall back to the use case defaults.
func pagination(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return limit, offset
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, offset := pagination(c)
	users, err := h.useCase.ListUsers(c.Request.Context(), actorFrom(c), limit, offset)
	if err != nil {
		h.fail(c, "list users", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.useCase.GetUser(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get user", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *UserHandler) UpdateRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "update role", err)
		return
	}

	user, err := h.useCase.UpdateRole(c.Request.Context(), actorFrom(c), c.Param("id"), req.Role)
	if err != nil {
		h.fail(c, "update role", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User role updated successfully", user)
}

func (h *UserHandler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if err := h.useCase.DeleteUser(c.Request.Context(), actorFrom(c), id); err != nil {
		h.fail(c, "delete user", err)
		return
	}
	h.log.Infof("Handler: User deleted: ID %s", id)
	SuccessResponse(c, http.StatusOK, "User deleted successfully", nil)
}
