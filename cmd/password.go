package cmd

import (
	"fmt"
	"os"
	"syscall"

	"github.com/nsxzhou1114/shock-api/pkg/auth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// hashPasswordCmd 生成管理员密码哈希
// 示例：./shock-api hash-password，按提示输入密码后将结果写入 admin.password_hash
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "生成管理员密码哈希",
	Long:  `生成 bcrypt 密码哈希，未传入参数时交互式读取密码`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			var err error
			if password, err = readPassword(); err != nil {
				fmt.Println(err)
				os.Exit(1)
			}
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			fmt.Printf("密码加密失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
}

// readPassword 从终端读取两次密码并校验一致
func readPassword() (string, error) {
	fmt.Print("请输入管理员密码: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // 换行
	if err != nil {
		return "", fmt.Errorf("读取密码失败: %w", err)
	}

	fmt.Print("请确认管理员密码: ")
	confirmBytes, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // 换行
	if err != nil {
		return "", fmt.Errorf("读取确认密码失败: %w", err)
	}

	if string(passwordBytes) != string(confirmBytes) {
		return "", fmt.Errorf("两次输入的密码不一致")
	}
	if len(passwordBytes) == 0 {
		return "", fmt.Errorf("密码不能为空")
	}
	return string(passwordBytes), nil
}
