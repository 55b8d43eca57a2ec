package model

// Employee 员工表，对应 employees
// 与工时记录是一对多关系，但不持有导航字段；按员工查询记录走 Repository.ListByEmployee
type Employee struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name       string `gorm:"type:varchar(200);not null" json:"name"`
	EmployeeID string `gorm:"type:varchar(50);not null"  json:"employeeId"`
	Location   string `gorm:"type:varchar(100);not null" json:"location"`
	Department string `gorm:"type:varchar(100);not null" json:"department"`
	BaseModel
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }
