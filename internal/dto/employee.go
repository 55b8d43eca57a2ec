package dto

// ── 员工模块 DTO ──

// CreateEmployeeRequest 创建员工请求
type CreateEmployeeRequest struct {
	Name       string `json:"name"       binding:"required,max=200"`
	EmployeeID string `json:"employeeId" binding:"required,max=50"`
	Location   string `json:"location"   binding:"required,max=100"`
	Department string `json:"department" binding:"required,max=100"`
}

// EmployeeResponse 员工信息响应
type EmployeeResponse struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Location   string `json:"location"`
	Department string `json:"department"`
}
