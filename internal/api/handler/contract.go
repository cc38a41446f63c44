package handler

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clauseguard/clauseguard_server/internal/api/middleware"
	"github.com/clauseguard/clauseguard_server/internal/model/dto"
	"github.com/clauseguard/clauseguard_server/internal/pkg/response"
	"github.com/clauseguard/clauseguard_server/internal/service"
)

type ContractHandler struct {
	contractService *service.ContractService
}

func NewContractHandler(contractService *service.ContractService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
	}
}

// Upload 上传合同文件
// POST /api/v1/contracts (multipart/form-data, field: file)
func (h *ContractHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "请选择要上传的文件")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")

	resp, err := h.contractService.Upload(userID, fileHeader.Filename, mimeType, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidFileType):
			response.ParamError(c, err.Error())
		case errors.Is(err, service.ErrFileTooLarge):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "上传成功", resp)
}

// List 获取合同列表
// GET /api/v1/contracts?search=&sort=date|risk&dir=asc|desc&page=1&page_size=20
func (h *ContractHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	query := &dto.ContractListQuery{
		Search:   c.Query("search"),
		Sort:     c.DefaultQuery("sort", "date"),
		Dir:      c.DefaultQuery("dir", "desc"),
		Page:     page,
		PageSize: pageSize,
	}

	items, total, err := h.contractService.List(userID, query)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessPage(c, total, query.Page, query.PageSize, items)
}

// Recent 获取最近上传的合同
// GET /api/v1/contracts/recent?limit=5
func (h *ContractHandler) Recent(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	items, err := h.contractService.ListRecent(userID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, items)
}

// Get 获取合同详情
// GET /api/v1/contracts/:id
func (h *ContractHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	detail, err := h.contractService.GetDetail(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, detail)
}

// Analyze 发起合同分析
// POST /api/v1/contracts/:id/analyze
func (h *ContractHandler) Analyze(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.contractService.StartAnalysis(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContractNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrAnalysisInProgress):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrAlreadyAnalyzed):
			response.DuplicateError(c, err.Error())
		case errors.Is(err, service.ErrQuotaExceeded):
			response.QuotaError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "已开始分析", resp)
}

// Delete 删除合同
// DELETE /api/v1/contracts/:id
func (h *ContractHandler) Delete(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	err := h.contractService.Delete(userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContractNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrAnalysisInProgress):
			response.DuplicateError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
