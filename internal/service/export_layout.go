package service

// sheetLayout 描述一种工作表的单元格布局
//
// 行定位采用"固定起始行 + 序号"：第 i 天（0..6，从周起始日算起）写入 FirstRow+i 行，
// 与星期几无关。模板布局与空白布局共用这一策略，仅坐标不同。
type sheetLayout struct {
	FirstRow  int
	TotalsRow int

	DayCol      string // 星期名称列；模板中已预置，为空表示不写
	DateCol     string
	StartCol    string
	EndCol      string
	HoursCol    string
	OdoStartCol string
	OdoEndCol   string
	KmCol       string

	// 员工信息单元格
	NameCell       string
	LocationCell   string
	EmployeeIDCell string
	DepartmentCell string
}

// templateLayout 外部模板 TimesheetTemplate.xlsx 的坐标约定（兼容既有模板，不可修改）
var templateLayout = sheetLayout{
	FirstRow:  8,
	TotalsRow: 15,

	DateCol:     "B",
	StartCol:    "C",
	EndCol:      "D",
	HoursCol:    "E",
	OdoStartCol: "F",
	OdoEndCol:   "G",
	KmCol:       "H",

	NameCell:       "B3",
	LocationCell:   "F3",
	EmployeeIDCell: "B4",
	DepartmentCell: "F4",
}

// freshSheetName 无模板时生成的工作表名
const freshSheetName = "Timesheet"

// freshHeaders 无模板时的表头（A..H 列顺序即约定）
var freshHeaders = []string{"DAY", "DATE", "START", "END", "HOURS", "ODO START", "ODO END", "KM"}

// freshLayout 无模板时的布局：第 1 行表头，第 2-8 行为七天，第 9 行合计，员工信息在下方
var freshLayout = sheetLayout{
	FirstRow:  2,
	TotalsRow: 9,

	DayCol:      "A",
	DateCol:     "B",
	StartCol:    "C",
	EndCol:      "D",
	HoursCol:    "E",
	OdoStartCol: "F",
	OdoEndCol:   "G",
	KmCol:       "H",

	NameCell:       "B11",
	EmployeeIDCell: "B12",
	LocationCell:   "B13",
	DepartmentCell: "B14",
}

// freshMetaLabels 无模板时员工信息的标签单元格
var freshMetaLabels = map[string]string{
	"A11": "NAME",
	"A12": "EMPLOYEE ID#",
	"A13": "LOCATION",
	"A14": "DEPARTMENT",
}

const (
	dateNumFmt = "mmmm d, yyyy"
	timeNumFmt = "h:mm"
)
