package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fortiblox/intcode/pkg/checkpoint"
	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fortiblox/intcode/pkg/pipeline"
	"github.com/fortiblox/intcode/pkg/types"
	"github.com/spf13/cobra"
)

func (a *app) newRunCmd() *cobra.Command {
	var (
		inputs         []int64
		pokes          []string
		peeks          []int64
		checkpointName string
	)

	cmd := &cobra.Command{
		Use:   "run <program>",
		Short: "Run a program and print its outputs",
		Long: `Run a program to halt and print its outputs.

With --checkpoint the run stops right after the first output instead, and the
suspended VM is saved under the given name for "intcode resume".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			vm := intcode.New(prog.Image, inputs, a.vmOptions()...)
			for _, p := range pokes {
				addr, value, err := parsePoke(p)
				if err != nil {
					return err
				}
				if err := vm.Poke(addr, value); err != nil {
					return err
				}
			}

			suspend := checkpointName != ""
			if suspend {
				if err := checkpoint.ValidateName(checkpointName); err != nil {
					return err
				}
			}

			if err := a.runVM(vm, suspend); err != nil {
				return err
			}
			printValues(cmd.OutOrStdout(), vm.Outputs())

			if suspend {
				if vm.Halted() {
					log.Warningf("program halted before producing output, no checkpoint saved")
				} else if err := a.save(checkpointName, prog.Hash, vm); err != nil {
					return err
				}
			}

			return printPeeks(cmd.OutOrStdout(), vm, peeks)
		},
	}

	cmd.Flags().Int64SliceVarP(&inputs, "input", "i", nil, "Input values, in order")
	cmd.Flags().StringArrayVarP(&pokes, "poke", "p", nil, "Patch memory before running, as addr=value (repeatable)")
	cmd.Flags().Int64SliceVar(&peeks, "peek", nil, "Print these memory cells after the run")
	cmd.Flags().StringVarP(&checkpointName, "checkpoint", "c", "", "Suspend at the first output and save under this name")
	return cmd
}

func (a *app) newResumeCmd() *cobra.Command {
	var (
		inputs      []int64
		programPath string
		untilOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resume <name>",
		Short: "Continue a checkpointed run",
		Long: `Continue a checkpointed run and print the outputs it produces.

With --until-output the run stops again after the next output and the
checkpoint is overwritten, so a program can be stepped one output at a time.
Once a stepped run halts, the checkpoint is removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			store, err := a.openStore()
			defer a.closeStore()
			if err != nil {
				return err
			}

			cp, err := store.Load(name)
			if err != nil {
				return err
			}
			a.metrics.CheckpointsLoaded.Inc()

			if programPath != "" {
				prog, err := loadProgram(programPath)
				if err != nil {
					return err
				}
				if err := cp.Verify(prog.Image); err != nil {
					return err
				}
			}

			vm, err := cp.Resume(a.vmOptions()...)
			if err != nil {
				return err
			}
			vm.Feed(inputs...)

			before := vm.OutputCount()
			if err := a.runVM(vm, untilOutput); err != nil {
				return err
			}
			printValues(cmd.OutOrStdout(), vm.Outputs()[before:])

			if !untilOutput {
				return nil
			}
			if vm.Halted() {
				log.Infof("checkpoint %s ran to halt, removing it", cp.Name)
				return store.Delete(cp.Name)
			}
			cp.State = vm.State()
			cp.CreatedAt = time.Now().UTC()
			if err := store.Save(cp); err != nil {
				return err
			}
			a.metrics.CheckpointsSaved.Inc()
			return nil
		},
	}

	cmd.Flags().Int64SliceVarP(&inputs, "input", "i", nil, "Additional input values")
	cmd.Flags().StringVar(&programPath, "program", "", "Verify the checkpoint was taken from this program")
	cmd.Flags().BoolVar(&untilOutput, "until-output", false, "Stop after the next output and update the checkpoint")
	return cmd
}

func (a *app) newPipelineCmd() *cobra.Command {
	var (
		phases   []int64
		feedback bool
		feed     int64
	)

	cmd := &cobra.Command{
		Use:   "pipeline <program>",
		Short: "Run one program per phase setting as a chain of amplifiers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			p := pipeline.New(prog.Image, phases, a.vmOptions()...)
			start := time.Now()

			var result int64
			if feedback {
				result, err = p.RunFeedback(cmd.Context(), feed)
			} else {
				result, err = p.Run(feed)
			}
			a.metrics.RecordPipeline(p.Rounds(), err, time.Since(start))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().Int64SliceVar(&phases, "phases", nil, "Phase setting for each stage, in order")
	cmd.Flags().BoolVar(&feedback, "feedback", false, "Loop the last stage's output back to the first")
	cmd.Flags().Int64Var(&feed, "feed", 0, "Initial value fed to the first stage")
	cmd.MarkFlagRequired("phases")
	return cmd
}

func (a *app) newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <program>",
		Short: "Print a linear disassembly of a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prog, err := loadProgram(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, line := range intcode.Disassemble(prog.Image) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func (a *app) newCheckpointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "Manage saved checkpoints",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved checkpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			defer a.closeStore()
			if err != nil {
				return err
			}

			names, err := store.List()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPROGRAM\tPC\tSTEPS\tOUTPUTS\tCREATED")
			for _, name := range names {
				cp, err := store.Load(name)
				if err != nil {
					log.Errorf("skipping %s: %v", name, err)
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
					cp.Name, cp.Program.Short(), cp.State.PC, cp.State.Stats.Steps,
					len(cp.State.Outputs), cp.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <name>...",
		Short: "Delete saved checkpoints",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			defer a.closeStore()
			if err != nil {
				return err
			}

			for _, name := range args {
				if err := store.Delete(name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

// save stores vm as a checkpoint named name.
func (a *app) save(name string, program types.Hash, vm *intcode.VM) error {
	store, err := a.openStore()
	defer a.closeStore()
	if err != nil {
		return err
	}

	cp, err := checkpoint.New(name, program, vm)
	if err != nil {
		return err
	}
	if err := store.Save(cp); err != nil {
		return err
	}

	a.metrics.CheckpointsSaved.Inc()
	log.Noticef("saved checkpoint %s at pc=%d", name, vm.PC())
	return nil
}

// parsePoke parses an addr=value memory patch.
func parsePoke(s string) (int64, int64, error) {
	addrText, valueText, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("invalid poke %q, want addr=value", s)
	}

	addr, err := strconv.ParseInt(strings.TrimSpace(addrText), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid poke address %q: %w", addrText, err)
	}
	value, err := strconv.ParseInt(strings.TrimSpace(valueText), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid poke value %q: %w", valueText, err)
	}
	return addr, value, nil
}

// printValues writes values as one comma-separated line.
func printValues(w io.Writer, values []int64) {
	if len(values) == 0 {
		return
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatInt(v, 10)
	}
	fmt.Fprintln(w, strings.Join(parts, ","))
}

// printPeeks writes addr=value for each requested cell.
func printPeeks(w io.Writer, vm *intcode.VM, addrs []int64) error {
	var errs []error
	for _, addr := range addrs {
		v, err := vm.Peek(addr)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(w, "%d=%d\n", addr, v)
	}
	return errors.Join(errs...)
}
