package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/abiosoft/ishell"

	fx "github.com/robotalks/sunrise.go/pkg/framework"
	"github.com/robotalks/sunrise.go/pkg/l0/comm"
	"github.com/robotalks/sunrise.go/pkg/l0/link"
	"github.com/robotalks/sunrise.go/pkg/sunrise"
)

// Shell provides ishell backed interactive AT console.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell   *ishell.Shell
	Config  *sunrise.Config
	Session *Session

	// serializes exchanges on the channel.
	lock sync.Mutex
}

// Session is an opened link with the port pumping it.
type Session struct {
	URL    string
	Cancel func()
	System *sunrise.System
	Runner *fx.Runner
}

// Exchange is the outcome of a command printed by the shell.
type Exchange struct {
	Command string `json:"command,omitempty"`
	Sent    int    `json:"sent"`
	Reply   string `json:"reply"`
	Error   string `json:"error,omitempty"`
}

const (
	shellKey     = "$shell"
	closedPrompt = "[closed] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&StatsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *sunrise.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(closedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeOpen wraps command func requires an opened link.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Session == nil {
			c.Err(fmt.Errorf("link not opened"))
			return
		}
		fn(c)
	}
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the link and starts pumping it.
func (s *Shell) Open(url string) error {
	stream, err := link.Open(url)
	if err != nil {
		return err
	}
	conf := *s.Config
	conf.Link = url
	sess := &Session{URL: url, System: sunrise.Assemble(&conf, stream)}
	ctx, cancel := context.WithCancel(context.Background())
	sess.Cancel = cancel
	sess.Runner = fx.NewRunnerWith(ctx).Go(sess.System.Port)
	s.Close()
	s.Session = sess
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", url))
	return nil
}

// Close stops the current session.
func (s *Shell) Close() {
	if s.Session != nil {
		s.Session.Cancel()
		if err := s.Session.Runner.Wait(); err != nil {
			log.Printf("link %s: %v", s.Session.URL, err)
		}
		s.Session = nil
		s.Shell.SetPrompt(closedPrompt)
	}
}

// Do runs fn with exclusive access to the channel.
func (s *Shell) Do(fn func(ch *comm.Channel) error) error {
	if s.Session == nil {
		return fmt.Errorf("link not opened")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.Session.System.Channel)
}

// Exchange sends a command and reads the reply.
func (s *Shell) Exchange(cmd string, mode comm.Mode) (*Exchange, error) {
	buf := make([]byte, s.Config.ReplySize)
	var n, sent int
	err := s.Do(func(ch *comm.Channel) (err error) {
		if sent, err = ch.SendCommand(context.Background(), cmd); err != nil {
			return err
		}
		n, err = ch.ReadResponse(context.Background(), buf, mode)
		return err
	})
	return &Exchange{Command: cmd, Sent: sent, Reply: string(buf[:n])}, err
}

// Print prints an exchange outcome.
func (s *Shell) Print(c *ishell.Context, ex *Exchange, err error) {
	if err != nil {
		ex.Error = err.Error()
	}
	if s.OutputJSON {
		out, err := json.Marshal(ex)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	if ex.Reply != "" {
		c.Printf("%q\n", ex.Reply)
	}
	if err != nil {
		c.Err(err)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen && s.Config.Link != "" {
		if s.Interactive {
			s.Shell.Printf("Opening %s ...\n", s.Config.Link)
		}
		if err := s.Open(s.Config.Link); err != nil {
			log.Fatalf("open %q failed: %v", s.Config.Link, err)
		}
	}
	defer s.Close()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// OpenCmd opens a link.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			url := s.Config.Link
			if len(c.Args) > 0 {
				url = c.Args[0]
			}
			if err := s.Open(url); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the current link.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// StatsCmd prints ring statistics.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: MustBeOpen(func(c *ishell.Context) {
			sys := ShellFrom(c).Session.System
			stats := map[string]comm.RingStats{
				"inbound":  sys.Port.Inbound.Stats(),
				"outbound": sys.Port.Outbound.Stats(),
			}
			if ShellFrom(c).OutputJSON {
				out, err := json.Marshal(stats)
				if err != nil {
					c.Err(err)
					return
				}
				c.Println(string(out))
				return
			}
			for _, name := range []string{"inbound", "outbound"} {
				c.Printf("%s: %+v\n", name, stats[name])
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := sunrise.NewConfig()
	if err != nil {
		log.Fatalln(err)
	}
	New(conf).WithAutoOpen(true).Run(flag.Args()...)
}
