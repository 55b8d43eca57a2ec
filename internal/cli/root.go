// Package cli 命令行客户端：基于 cobra，驱动 viewmodel.WeekView 访问工时服务
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nexidian/gocliselect"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/O-B-I-s/TimeTracker/internal/client"
	"github.com/O-B-I-s/TimeTracker/internal/viewmodel"
	"github.com/O-B-I-s/TimeTracker/internal/worktime"
	applogger "github.com/O-B-I-s/TimeTracker/pkg/logger"
)

// Deps 命令依赖，测试中替换
type Deps struct {
	// NewAPI 按服务地址创建 API 客户端
	NewAPI func(server string) viewmodel.API
	Now    func() time.Time
	// IsTerminal 标准输入是否为交互终端
	IsTerminal func() bool
	// PickDay 交互选择一周中的某天
	PickDay func(days [7]time.Time) (time.Time, error)
}

// DefaultDeps 真实环境依赖
func DefaultDeps() Deps {
	return Deps{
		NewAPI:     func(server string) viewmodel.API { return client.New(server) },
		Now:        time.Now,
		IsTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		PickDay:    pickDayMenu,
	}
}

// app 单次命令执行的上下文
type app struct {
	deps   Deps
	v      *viper.Viper
	logger *zap.Logger
}

// NewRootCommand 构建 timesheet 根命令
// 全局参数可由环境变量覆盖：TIMESHEET_SERVER、TIMESHEET_LOG_LEVEL、TIMESHEET_WEEK_START
func NewRootCommand(deps Deps) *cobra.Command {
	a := &app{deps: deps, v: viper.New()}

	root := &cobra.Command{
		Use:           "timesheet",
		Short:         "Weekly timesheet client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := applogger.NewCLILogger(a.v.GetString("log_level"))
			if err != nil {
				return err
			}
			a.logger = logger
			if _, err := worktime.ParseWeekday(a.v.GetString("week_start")); err != nil {
				return err
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("server", "http://localhost:8080", "timesheet API base URL")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("week-start", "sunday", "first day of the week")

	a.v.SetEnvPrefix("TIMESHEET")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	_ = a.v.BindPFlag("server", flags.Lookup("server"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("week_start", flags.Lookup("week-start"))

	root.AddCommand(
		a.weekCommand(),
		a.setCommand(),
		a.deleteCommand(),
		a.exportCommand(),
	)
	return root
}

// newView 为当前命令创建视图模型
func (a *app) newView() *viewmodel.WeekView {
	weekStart, _ := worktime.ParseWeekday(a.v.GetString("week_start"))
	logger := a.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return viewmodel.NewWeekView(
		a.deps.NewAPI(a.v.GetString("server")),
		viewmodel.WithLogger(logger),
		viewmodel.WithWeekStart(weekStart),
		viewmodel.WithNow(a.deps.Now),
	)
}

// resolveDate 解析 DATE 参数；省略时在交互终端中弹出本周选择菜单，否则取今天
func (a *app) resolveDate(args []string, weekStart time.Weekday) (time.Time, error) {
	if len(args) > 0 {
		return worktime.ParseDate(args[0])
	}
	today := worktime.DateOf(a.deps.Now())
	if a.deps.IsTerminal == nil || !a.deps.IsTerminal() || a.deps.PickDay == nil {
		return today, nil
	}
	return a.deps.PickDay(worktime.WeekDays(worktime.WeekStart(today, weekStart)))
}

func pickDayMenu(days [7]time.Time) (time.Time, error) {
	menu := gocliselect.NewMenu("Select a day")
	for _, d := range days {
		menu.AddItem(d.Format("Mon Jan 2"), d.Format(worktime.DateLayout))
	}
	choice := fmt.Sprint(menu.Display())
	if choice == "" {
		return time.Time{}, fmt.Errorf("no day selected")
	}
	return worktime.ParseDate(choice)
}
