package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"
)

// deviceRow 设备列表中用到的字段
type deviceRow struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Family  string `json:"family"`
	Address string `json:"address"`
	Online  bool   `json:"online"`
}

type deviceList struct {
	Devices []deviceRow `json:"devices"`
	Error   string      `json:"error,omitempty"`
}

func settleFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:  "settle",
		Usage: "发送完成后等待错误回报的时间",
		Value: 500 * time.Millisecond,
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"V"},
		Usage:   "打印收到的全部事件",
	}
}

func createCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:    "devices",
			Aliases: []string{"ls"},
			Usage:   "列出已发现的设备",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withClient(cmd, func(c *client) error {
					var list deviceList
					if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &list); err != nil {
						return err
					}
					return printDevices(cmd.Root().Writer, list)
				})
			},
		},
		{
			Name:  "scan",
			Usage: "重新扫描设备",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withClient(cmd, func(c *client) error {
					var list deviceList
					if err := c.do(ctx, http.MethodPost, "/api/devices/scan", nil, &list); err != nil {
						return err
					}
					if list.Error != "" {
						fmt.Fprintf(os.Stderr, "扫描未完成: %s\n", list.Error)
					}
					return printDevices(cmd.Root().Writer, list)
				})
			},
		},
		{
			Name:      "use",
			Usage:     "切换到指定设备的模式",
			ArgsUsage: "<device-id>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return errors.New("use: 需要一个设备 ID")
				}
				return withClient(cmd, func(c *client) error {
					return printJSON(ctx, c, cmd.Root().Writer, http.MethodPost, "/api/mode", map[string]string{"device": cmd.Args().First()})
				})
			},
		},
		{
			Name:  "release",
			Usage: "退出当前模式并断开设备",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withClient(cmd, func(c *client) error {
					return printJSON(ctx, c, cmd.Root().Writer, http.MethodDelete, "/api/mode", nil)
				})
			},
		},
		{
			Name:  "status",
			Usage: "查看当前模式",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				return withClient(cmd, func(c *client) error {
					return printJSON(ctx, c, cmd.Root().Writer, http.MethodGet, "/api/mode", nil)
				})
			},
		},
		{
			Name:      "monitor",
			Usage:     "开关传感器轮询",
			ArgsUsage: "start|stop",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				op := cmd.Args().First()
				if op != "start" && op != "stop" {
					return fmt.Errorf("monitor: 参数必须是 start 或 stop，实际为 %q", op)
				}
				return withClient(cmd, func(c *client) error {
					return printJSON(ctx, c, cmd.Root().Writer, http.MethodPost, "/api/monitoring/"+op, nil)
				})
			},
		},
		{
			Name:      "send",
			Usage:     "通过命令通道发送一条命令",
			ArgsUsage: "<command> [json-value]",
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "delay", Usage: "服务端延迟执行（毫秒）"},
				settleFlag(),
				verboseFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				st, err := stepFromArgs(cmd.Args().Slice(), int(cmd.Int("delay")))
				if err != nil {
					return err
				}
				return withClient(cmd, func(c *client) error {
					conn, err := c.dialRunner(ctx)
					if err != nil {
						return err
					}
					return runSteps(ctx, conn, []Step{st}, cmd.Duration("settle"), cmd.Bool("verbose"), cmd.Root().Writer)
				})
			},
		},
		{
			Name:      "run",
			Usage:     "按 YAML 脚本顺序发送命令",
			ArgsUsage: "<script.yaml>",
			Flags:     []cli.Flag{settleFlag(), verboseFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return errors.New("run: 需要一个脚本文件")
				}
				data, err := os.ReadFile(cmd.Args().First())
				if err != nil {
					return err
				}
				script, err := parseScript(data)
				if err != nil {
					return err
				}
				return withClient(cmd, func(c *client) error {
					if script.Device != "" {
						if err := c.do(ctx, http.MethodPost, "/api/mode", map[string]string{"device": script.Device}, nil); err != nil {
							return err
						}
						fmt.Fprintf(cmd.Root().Writer, "using %s\n", script.Device)
					}
					conn, err := c.dialRunner(ctx)
					if err != nil {
						return err
					}
					return runSteps(ctx, conn, script.Steps, cmd.Duration("settle"), cmd.Bool("verbose"), cmd.Root().Writer)
				})
			},
		},
	}
}

func withClient(cmd *cli.Command, fn func(c *client) error) error {
	c, err := newClient(cmd.String("server"), cmd.String("api-key"), cmd.Duration("timeout"))
	if err != nil {
		return err
	}
	return fn(c)
}

// stepFromArgs send 的参数：命令名与可选的 JSON 值
func stepFromArgs(args []string, delay int) (Step, error) {
	if len(args) == 0 || len(args) > 2 {
		return Step{}, errors.New("send: 用法 send <command> [json-value]")
	}
	st := Step{Command: args[0], Delay: delay}
	if len(args) == 2 {
		var v any
		if err := json.Unmarshal([]byte(args[1]), &v); err != nil {
			return Step{}, fmt.Errorf("send: invalid json value: %w", err)
		}
		st.Value = v
	}
	if st.Delay < 0 {
		return Step{}, errors.New("send: delay must not be negative")
	}
	return st, nil
}

func printDevices(w io.Writer, list deviceList) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tKIND\tFAMILY\tONLINE")
	for _, d := range list.Devices {
		family := d.Family
		if family == "" {
			family = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Kind, family, strconv.FormatBool(d.Online))
	}
	return tw.Flush()
}

func printJSON(ctx context.Context, c *client, w io.Writer, method, path string, body any) error {
	var raw json.RawMessage
	if err := c.do(ctx, method, path, body, &raw); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(w)
	return err
}
