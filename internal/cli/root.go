// Package cli 实现运维命令行 effctl
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/config"
	"github.com/longbo188/workshop-sub000/internal/service"
	"github.com/longbo188/workshop-sub000/pkg/jwt"
)

// Runtime 命令执行所需的业务依赖
type Runtime struct {
	Efficiency service.EfficiencyService
	Close      func()
}

// Options 命令行的可注入依赖
type Options struct {
	Out        io.Writer
	LoadConfig func(path string) (*config.Config, error)
	NewLogger  func(cfg *config.LogConfig) (*zap.Logger, error)
	// Open 连接数据库与 Redis 并组装服务，仅在需要业务服务的子命令中调用
	Open func(cfg *config.Config, logger *zap.Logger) (*Runtime, error)
}

type cli struct {
	opts       Options
	configPath string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd 创建 effctl 根命令并注册全部子命令
func NewRootCmd(opts Options) *cobra.Command {
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:           "effctl",
		Short:         "工时核算与效率锁定运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.SetOut(opts.Out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "配置文件路径（默认 ./config/config.yaml）")

	root.AddCommand(
		newComputeCmd(c),
		newRunCmd(c),
		newConfirmCmd(c),
		newClearCmd(c),
		newIssueTokenCmd(c),
	)
	return root
}

func (c *cli) init() error {
	cfg, err := c.opts.LoadConfig(c.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := c.opts.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	c.cfg, c.logger = cfg, logger
	return nil
}

// withRuntime 打开业务依赖，执行 fn 后释放
func (c *cli) withRuntime(fn func(rt *Runtime) error) error {
	rt, err := c.opts.Open(c.cfg, c.logger)
	if err != nil {
		return err
	}
	if rt.Close != nil {
		defer rt.Close()
	}
	return fn(rt)
}

func (c *cli) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) tokens() *jwt.Manager {
	return jwt.NewManager(&c.cfg.Auth)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
