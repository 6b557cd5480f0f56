package handler

import "duty-roster/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Formula    *FormulaHandler
	Generation *GenerationHandler
	Version    *VersionHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Formula:    NewFormulaHandler(svc.Pattern),
		Generation: NewGenerationHandler(svc.Generation),
		Version:    NewVersionHandler(svc.Snapshot, svc.Diff),
		Export:     NewExportHandler(svc.Export),
	}
}
