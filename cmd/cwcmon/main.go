// cwcmon 终端实时查看 bridge 事件：设备状态、传感器数据、命令错误。
//
// 用法:
//
//	cwcmon -server http://127.0.0.1:8090 [-api-key KEY]
//
// 按键:
//
//	p  暂停/继续滚动
//	c  清空事件
//	q  退出
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	server := flag.String("server", envOr("CWC_SERVER", "http://127.0.0.1:8090"), "bridge HTTP 地址")
	apiKey := flag.String("api-key", os.Getenv("CWC_API_KEY"), "X-API-Key")
	flag.Parse()

	url, err := runnerURL(*server)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	p := tea.NewProgram(newModel(url, *apiKey), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
