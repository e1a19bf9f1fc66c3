package main

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/handler"
	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/pkg/config"
)

type routeHandlers struct {
	rubric   *handler.RubricHandler
	grades   *handler.GradeHandler
	reports  *handler.ReportHandler
	schedule *handler.ScheduleHandler
	metrics  *handler.MetricsHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, h routeHandlers) {
	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", h.metrics.Prometheus)
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	courses := api.Group("/courses/:id")
	courses.GET("/rubric-items", h.rubric.ListByCourse)
	courses.POST("/rubric-items", h.rubric.Create)
	courses.GET("/statistics", h.grades.Statistics)
	courses.GET("/grade-report", h.reports.CourseGradeReport)

	rubric := api.Group("/rubric-items")
	rubric.GET("/:id", h.rubric.Get)
	rubric.PUT("/:id", h.rubric.Update)
	rubric.DELETE("/:id", h.rubric.Delete)

	grades := api.Group("/grades")
	grades.PUT("", h.grades.Upsert)
	grades.POST("/bulk", h.grades.Bulk)

	enrollments := api.Group("/enrollments/:id")
	enrollments.GET("/grades", h.grades.ListByEnrollment)
	enrollments.GET("/average", h.grades.Average)

	slots := api.Group("/time-slots")
	slots.GET("", h.schedule.List)
	slots.POST("", h.schedule.Create)
	slots.POST("/bulk", h.schedule.BulkCreate)
	slots.POST("/check", h.schedule.Check)
	slots.GET("/:id", h.schedule.Get)
	slots.PUT("/:id", h.schedule.Update)
	slots.DELETE("/:id", h.schedule.Delete)

	api.GET("/teachers/:id/load", h.schedule.TeacherLoad)
}
