package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/longbo188/workshop-sub000/internal/api/middleware"
)

// ErrUnknownRole 角色不在允许范围内
var ErrUnknownRole = errors.New("角色只能是 admin 或 operator")

type tokenOutput struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// newIssueTokenCmd 为运维脚本签发短期服务令牌，不连接数据库
func newIssueTokenCmd(c *cli) *cobra.Command {
	var userID, role string

	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "签发访问管理接口的服务令牌",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if role != middleware.RoleAdmin && role != middleware.RoleOperator {
				return fmt.Errorf("%w: %q", ErrUnknownRole, role)
			}
			token, err := c.tokens().GenerateAccessToken(userID, role)
			if err != nil {
				return fmt.Errorf("签发令牌失败: %w", err)
			}
			return c.printJSON(cmd, tokenOutput{
				UserID:      userID,
				Role:        role,
				AccessToken: token,
				ExpiresIn:   int64(c.cfg.Auth.AccessTokenTTL.Seconds()),
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "令牌所属用户 ID")
	cmd.Flags().StringVar(&role, "role", middleware.RoleAdmin, "角色：admin | operator")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
