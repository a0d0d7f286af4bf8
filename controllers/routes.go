package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/customs-tracker-api/middleware"
)

// RegisterCustomRoutes mounts the customs endpoints on an authenticated group
func RegisterCustomRoutes(group *gin.RouterGroup) {
	customs := group.Group("/customs")
	{
		customs.GET("", ListCustoms)
		customs.POST("", CreateCustom)
		customs.GET("/board", GetCustomBoard)
		customs.GET("/models", GetModelNames)
		customs.GET("/export", ExportCustoms)
		customs.GET("/stream", StreamCustoms)

		customs.GET("/:id", GetCustom)
		customs.DELETE("/:id", middleware.RequireScope(middleware.ScopeDeleteCustoms), DeleteCustom)
		customs.POST("/:id/transitions", TransitionCustom)
		customs.PATCH("/:id/description", UpdateCustomDescription)
		customs.PATCH("/:id/due-date", UpdateCustomDueDate)
		customs.PATCH("/:id/downpayment", UpdateCustomDownpayment)
		customs.GET("/:id/history", GetCustomHistory)

		customs.POST("/:id/attachments", UploadAttachments)
		customs.DELETE("/:id/attachments", RemoveAttachment)
		customs.GET("/:id/attachments/url", GetAttachmentURL)
	}
}
