package domain

import (
	"time"

	"binacloud/monitor/buildinfo"
)

// HealthResponse represents the health status of the service
type HealthResponse struct {
	Status    string              `json:"status" example:"healthy"`
	Timestamp time.Time           `json:"timestamp" example:"2025-11-22T10:00:00Z"`
	BuildInfo buildinfo.Info      `json:"buildInfo"`
	Services  ServiceHealthStatus `json:"services"`
}

// ServiceHealthStatus represents the health status of dependent services
type ServiceHealthStatus struct {
	ClickHouse ServiceStatus `json:"clickhouse"`
	Redis      ServiceStatus `json:"redis"`
}

// ServiceStatus represents the status of a single service
type ServiceStatus struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:""`
}

// ErrorResponse is the body returned for rejected requests.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"deviceId is required"`
}

// BulkEventResponse represents the response after posting bulk events
type BulkEventResponse struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"Bulk events accepted"`
	TotalCount   int    `json:"total_count" example:"100"`
	SuccessCount int    `json:"success_count" example:"100"`
	FailureCount int    `json:"failure_count" example:"0"`
}
