package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/longbo188/workshop-sub000/internal/dto"
)

// ErrClearNotConfirmed 清空锁定未加 --yes
var ErrClearNotConfirmed = errors.New("清空全部锁定快照需要 --yes 确认")

func newComputeCmd(c *cli) *cobra.Command {
	var taskID, phaseKey string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "核算单个任务阶段的效率（已锁定时返回快照）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(func(rt *Runtime) error {
				out, err := rt.Efficiency.ComputeEfficiency(commandContext(cmd), taskID, phaseKey)
				if err != nil {
					return fmt.Errorf("核算 %s/%s 失败: %w", taskID, phaseKey, err)
				}
				return c.printJSON(cmd, out.ToResponse())
			})
		},
	}
	cmd.Flags().StringVar(&taskID, "task", "", "任务 ID")
	cmd.Flags().StringVar(&phaseKey, "phase", "", "阶段标识")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("phase")
	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	var taskIDs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "批量核算全部可核算阶段，并锁定超过阈值的阶段",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(func(rt *Runtime) error {
				report, err := rt.Efficiency.Run(commandContext(cmd), taskIDs)
				if err != nil {
					return fmt.Errorf("批量核算失败: %w", err)
				}
				if len(report.Failures) > 0 {
					c.logger.Warn("部分阶段核算失败", zap.Int("failures", len(report.Failures)))
				}
				return c.printJSON(cmd, report.ToResponse())
			})
		},
	}
	cmd.Flags().StringSliceVar(&taskIDs, "task", nil, "仅核算指定任务（可重复）")
	return cmd
}

func newConfirmCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "锁定结束超过阈值工作日的阶段",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withRuntime(func(rt *Runtime) error {
				n, err := rt.Efficiency.ConfirmOldPhases(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("锁定失败: %w", err)
				}
				return c.printJSON(cmd, dto.ConfirmResponse{Confirmed: n})
			})
		},
	}
}

func newClearCmd(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "清空全部锁定快照（之后重新按实时数据核算）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return ErrClearNotConfirmed
			}
			return c.withRuntime(func(rt *Runtime) error {
				n, err := rt.Efficiency.ClearConfirmations(commandContext(cmd))
				if err != nil {
					return fmt.Errorf("清空锁定失败: %w", err)
				}
				c.logger.Info("已清空锁定快照", zap.Int64("cleared", n))
				return c.printJSON(cmd, dto.ClearConfirmationsResponse{Cleared: n})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "确认清空")
	return cmd
}
