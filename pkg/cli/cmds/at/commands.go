// Package at registers ESP8266 AT commands into the shell.
package at

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/sunrise.go/pkg/cli/sh"
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/l0/esp8266"
	"github.com/robotalks/sunrise.go/pkg/sunrise"
)

func exchange(c *ishell.Context, cmd string, mode comm.Mode) {
	s := sh.ShellFrom(c)
	ex, err := s.Exchange(cmd, mode)
	s.Print(c, ex, err)
}

// parseMode takes a leading -mode=NAME argument.
func parseMode(args []string) (mode comm.Mode, rest []string, explicit bool, err error) {
	if len(args) == 0 || !strings.HasPrefix(args[0], "-mode=") {
		return comm.ModePlain, args, false, nil
	}
	name := strings.TrimPrefix(args[0], "-mode=")
	m, ok := comm.ModeByName(name)
	if !ok {
		return m, args, true, fmt.Errorf("unknown mode %q", name)
	}
	return m, args[1:], true, nil
}

var (
	// ProbeCmd sends AT.
	ProbeCmd = ishell.Cmd{
		Name: "probe",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			exchange(c, esp8266.CmdProbe, comm.ModePlain)
		}),
	}

	// ResetCmd restarts the modem.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			exchange(c, esp8266.CmdReset, comm.ModePlain)
		}),
	}

	// JoinCmd joins a WiFi network.
	JoinCmd = ishell.Cmd{
		Name: "join",
		Help: "[SSID PASSWORD]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			ssid, password := s.Config.WiFi.SSID, s.Config.WiFi.Password
			if len(c.Args) >= 2 {
				ssid, password = c.Args[0], c.Args[1]
			}
			if ssid == "" {
				c.Err(fmt.Errorf("SSID required"))
				return
			}
			exchange(c, esp8266.JoinCommand(ssid, password), comm.ModeNetworkJoin)
		}),
	}

	// SendCmd sends an arbitrary command line.
	SendCmd = ishell.Cmd{
		Name:    "send",
		Aliases: []string{"s"},
		Help:    "[-mode=plain|join|NAME] COMMAND",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			mode, args, explicit, err := parseMode(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(args) == 0 {
				c.Err(fmt.Errorf("COMMAND required"))
				return
			}
			cmd := strings.Join(args, " ")
			if !explicit {
				mode = esp8266.ModeOf(cmd)
			}
			exchange(c, cmd, mode)
		}),
	}

	// RawCmd sends hex encoded bytes without echo sync and reads a reply.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "[-mode=NAME] HEX",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			mode, args, _, err := parseMode(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			if len(args) != 1 {
				c.Err(fmt.Errorf("HEX required"))
				return
			}
			payload, err := hex.DecodeString(args[0])
			if err != nil {
				c.Err(fmt.Errorf("Invalid HEX: %v", err))
				return
			}
			s := sh.ShellFrom(c)
			buf := make([]byte, s.Config.ReplySize)
			var n, sent int
			err = s.Do(func(ch *comm.Channel) (err error) {
				if sent, err = ch.SendRaw(context.Background(), payload); err != nil {
					return err
				}
				n, err = ch.ReadResponse(context.Background(), buf, mode)
				return err
			})
			s.Print(c, &sh.Exchange{Sent: sent, Reply: string(buf[:n])}, err)
		}),
	}

	// ReadCmd reads a reply without sending anything.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[-mode=NAME]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			mode, _, _, err := parseMode(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s := sh.ShellFrom(c)
			buf := make([]byte, s.Config.ReplySize)
			var n int
			err = s.Do(func(ch *comm.Channel) (err error) {
				n, err = ch.ReadResponse(context.Background(), buf, mode)
				return err
			})
			s.Print(c, &sh.Exchange{Reply: string(buf[:n])}, err)
		}),
	}

	// ScriptCmd runs the configured script.
	ScriptCmd = ishell.Cmd{
		Name: "script",
		Help: "",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			s := sh.ShellFrom(c)
			script, err := s.Config.BuildScript()
			if err != nil {
				c.Err(err)
				return
			}
			var results []sunrise.StepResult
			err = s.Do(func(ch *comm.Channel) (err error) {
				seq := sunrise.NewSequencer(ch, script)
				seq.ReplySize = s.Config.ReplySize
				seq.AbortOnError = s.Config.AbortOnError
				results, err = seq.Run(context.Background())
				return err
			})
			for _, res := range results {
				ex := &sh.Exchange{Command: res.Step.Name, Sent: res.Sent, Reply: string(res.Reply)}
				if res.Err != nil {
					ex.Error = res.Err.Error()
				}
				if s.OutputJSON {
					s.Print(c, ex, nil)
					continue
				}
				status := "ok"
				if ex.Error != "" {
					status = ex.Error
				}
				c.Printf("%d %s %q %s\n", res.Index, res.Step.Name, ex.Reply, status)
			}
			if err != nil && !s.OutputJSON {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&ProbeCmd,
		&ResetCmd,
		&JoinCmd,
		&SendCmd,
		&RawCmd,
		&ReadCmd,
		&ScriptCmd,
	)
}
