// Package diag 汇集引擎的诊断输出：结构化日志事件、
// Prometheus 指标与失败现场工件（截图 / HTML 快照）。
package diag
