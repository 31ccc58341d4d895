package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// 编译时通过 -ldflags "-X github.com/nsxzhou1114/shock-api/cmd.Version=..." 注入
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var shortVersion bool

// versionCmd 版本信息命令
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		if shortVersion {
			fmt.Println(Version)
			return
		}
		fmt.Printf("shock-api %s (%s)\n", Version, GitCommit)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Printf("运行环境: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "只输出版本号")
	rootCmd.AddCommand(versionCmd)
}
