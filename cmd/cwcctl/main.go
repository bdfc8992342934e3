// cwcctl 是 cwc-bridge 的命令行客户端。
//
// 用法:
//
//	cwcctl [全局选项] <命令> [命令参数]
//
// 命令:
//
//	devices            列出已发现的设备
//	scan               重新扫描设备
//	use <device-id>    切换到指定设备的模式
//	release            退出当前模式并断开设备
//	status             查看当前模式
//	monitor start|stop 开关传感器轮询
//	send <command> [json]
//	                   通过命令通道发送一条命令
//	run <script.yaml>  按脚本顺序发送命令
//
// 示例:
//
//	cwcctl use virtual:sphero
//	cwcctl send setRGB '{"red":255,"green":0,"blue":0}'
//	cwcctl send roll '{"speed":80,"heading":90}' --delay 500
//	cwcctl run examples/square.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

// Version 可通过 -ldflags "-X main.Version=..." 注入
var Version = "dev"

const (
	defaultServer  = "http://127.0.0.1:8090"
	defaultTimeout = 15 * time.Second
)

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

func createApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "cwcctl",
		Usage:   "cwc-bridge 命令行客户端",
		Version: Version,
		Writer:  w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "bridge HTTP 地址",
				Value:   defaultServer,
				Sources: cli.EnvVars("CWC_SERVER"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Aliases: []string{"k"},
				Usage:   "X-API-Key",
				Sources: cli.EnvVars("CWC_API_KEY"),
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Usage:   "请求超时时间",
				Value:   defaultTimeout,
			},
		},
		Commands: createCommands(),
	}
}

func run(args []string, w io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createApp(w).Run(ctx, args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}
	return 0
}
