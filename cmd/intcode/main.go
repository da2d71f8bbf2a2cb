// intcode runs Intcode programs from the command line.
//
// It loads comma-separated program files, runs them with optional inputs and
// memory patches, drives amplifier pipelines, disassembles programs, and can
// suspend a run at its first output into a named checkpoint to be resumed
// later.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/metrics"
	"github.com/fortiblox/intcode/pkg/types"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

var log = commonlog.GetLogger("intcode.cli")

// app carries state shared by all subcommands of one invocation.
type app struct {
	flags   globalFlags
	cfg     Config
	metrics *metrics.Metrics
	codec   *checkpoint.Codec
	store   checkpoint.Store
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "intcode",
		Short:         "Run, pipeline, checkpoint and disassemble Intcode programs",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	a.flags.register(root)

	root.AddCommand(
		a.newRunCmd(),
		a.newResumeCmd(),
		a.newPipelineCmd(),
		a.newDisasmCmd(),
		a.newCheckpointsCmd(),
	)
	a.reportAfter(root.Commands())
	return root
}

// reportAfter wraps every command so metrics are printed whether or not the
// command succeeds.
func (a *app) reportAfter(cmds []*cobra.Command) {
	for _, c := range cmds {
		if run := c.RunE; run != nil {
			c.RunE = func(cmd *cobra.Command, args []string) error {
				err := run(cmd, args)
				a.reportMetrics(cmd)
				return err
			}
		}
		a.reportAfter(c.Commands())
	}
}

// setup loads configuration and configures logging.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.flags.configFile)
	if err != nil {
		return err
	}
	a.flags.applyOverrides(cmd, &cfg)
	if err := cfg.validate(); err != nil {
		return err
	}
	a.cfg = cfg

	v, _ := verbosity(cfg.Log.Level)
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(v, path)

	a.metrics = metrics.NewMetrics()
	log.Debugf("config: backend=%s data_dir=%s memory_limit=%d step_limit=%d",
		cfg.Checkpoint.Backend, cfg.Checkpoint.DataDir, cfg.VM.MemoryLimit, cfg.VM.StepLimit)
	return nil
}

// reportMetrics prints metrics when enabled.
func (a *app) reportMetrics(cmd *cobra.Command) {
	if a.cfg.Metrics.Enabled {
		a.metrics.CollectRuntime()
		fmt.Fprint(cmd.ErrOrStderr(), a.metrics.Format())
	}
}

// vmOptions translates the VM config section into interpreter options.
func (a *app) vmOptions() []intcode.Option {
	return []intcode.Option{
		intcode.WithMemoryLimit(a.cfg.VM.MemoryLimit),
		intcode.WithStepLimit(a.cfg.VM.StepLimit),
		intcode.WithTrace(a.cfg.VM.Trace),
	}
}

// openStore opens the configured checkpoint store on first use.
func (a *app) openStore() (checkpoint.Store, error) {
	if a.store != nil {
		return a.store, nil
	}

	codec, err := checkpoint.NewCodec(a.cfg.Checkpoint.CompressionLevel)
	if err != nil {
		return nil, err
	}
	a.codec = codec

	switch a.cfg.Checkpoint.Backend {
	case "memory":
		a.store = checkpoint.NewMemoryStore(codec)
	default:
		if err := os.MkdirAll(a.cfg.Checkpoint.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
		store, err := checkpoint.NewBadgerStore(a.cfg.Checkpoint.DataDir, codec)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return a.store, nil
}

// closeStore releases the store opened by openStore. Commands defer it so
// the database lock is dropped even when the command fails.
func (a *app) closeStore() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Errorf("failed to close checkpoint store: %v", err)
		}
		a.store = nil
	}
	if a.codec != nil {
		a.codec.Close()
		a.codec = nil
	}
}

// loadProgram reads and parses a program file.
func loadProgram(path string) (types.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return types.Program{}, fmt.Errorf("failed to open program: %w", err)
	}
	defer f.Close()

	image, err := intcode.LoadProgram(f)
	if err != nil {
		return types.Program{}, fmt.Errorf("%s: %w", path, err)
	}

	p := types.NewProgram(image)
	log.Infof("loaded %s: %d cells, hash %s", path, p.Len(), p.Hash)
	return p, nil
}

// runVM runs vm either to halt or to its next output, recording metrics.
func (a *app) runVM(vm *intcode.VM, suspend bool) error {
	before := vm.Stats()
	start := time.Now()
	err := vm.Run(suspend)
	a.metrics.RecordRun(vm.Stats().Sub(before), vm.MemorySize(), err, time.Since(start))
	return err
}
