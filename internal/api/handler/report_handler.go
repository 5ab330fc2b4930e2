package handler

import (
	"Agora/internal/api/dto"
	"Agora/internal/pkg/response"
	"Agora/internal/service"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportSvc service.ReportService
}

func NewReportHandler(reportSvc service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

func (s *ReportHandler) FileReport(c *gin.Context) {
	var req dto.FileReportReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	report, err := s.reportSvc.FileReport(c.Request.Context(), c.GetUint64("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

func (s *ReportHandler) ListReports(c *gin.Context) {
	var req dto.ReportListReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	list, err := s.reportSvc.ListReports(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}

func (s *ReportHandler) GetReport(c *gin.Context) {
	reportID, err := paramID(c, "report_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := s.reportSvc.GetReport(c.Request.Context(), reportID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}

// StartReview 审核员认领举报
func (s *ReportHandler) StartReview(c *gin.Context) {
	reportID, err := paramID(c, "report_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err = s.reportSvc.StartReview(c.Request.Context(), reportID, c.GetUint64("user_id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *ReportHandler) Review(c *gin.Context) {
	reportID, err := paramID(c, "report_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.ReviewReq
	if err = c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	report, err := s.reportSvc.Review(c.Request.Context(), reportID, c.GetUint64("user_id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, report)
}
