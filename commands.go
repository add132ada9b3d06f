package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/jcorbin/voz/internal/artifact"
	"github.com/jcorbin/voz/internal/asmgen"
	"github.com/jcorbin/voz/internal/fileinput"
	"github.com/jcorbin/voz/internal/progfile"
	"github.com/jcorbin/voz/internal/vm"
)

func (a *app) flagSet(name, usage string) *flag.FlagSet {
	flags := flag.NewFlagSet("voz "+name, flag.ContinueOnError)
	flags.SetOutput(a.err)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), "usage: voz %v\n", usage)
		flags.PrintDefaults()
	}
	return flags
}

// loadSource reads the program named by args: either a single program file,
// or constants and quadruples given inline.
func (a *app) loadSource(args []string) (*progfile.Source, error) {
	if len(args) == 1 {
		if _, isFile := progfile.FormatOf(args[0]); isFile {
			a.log.Infof("loading program file %v", args[0])
			return progfile.Load(args[0])
		}
	}
	return progfile.FromArgs(args)
}

func runCommand(ctx context.Context, a *app, args []string) (int, error) {
	flags := a.flagSet("run", runUsage)
	inputs := append(stringsFlag(nil), a.cfg.Run.Inputs...)
	flags.Var(&inputs, "in", "queue an input file ahead of stdin; may be repeated")
	if err := flags.Parse(args); err != nil {
		return 2, err
	}

	src, err := a.loadSource(flags.Args())
	if err != nil {
		return 2, err
	}

	var in []io.Reader
	for _, name := range inputs {
		f, err := os.Open(name)
		if err != nil {
			for _, r := range in {
				r.(io.Closer).Close()
			}
			return 2, err
		}
		in = append(in, f)
	}
	// hide Close so that the process stdin is never closed by the machine
	in = append(in, fileinput.NamedReader("<stdin>", struct{ io.Reader }{a.in}))

	opts := []vm.Option{
		vm.WithInput(in...),
		vm.WithOutput(a.out),
		vm.WithError(a.err),
	}
	if a.cfg.Run.Trace {
		opts = append(opts, vm.WithLogf(commonlog.GetLogger("voz.vm").Debugf))
	}

	if timeout := a.cfg.Run.Timeout.Duration; timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m := vm.New(src.Constants, src.Program, opts...)
	defer m.Close()
	a.log.Infof("running %v instructions with %v constants", len(src.Program), len(src.Constants))
	err = m.Run(ctx)
	if a.cfg.Run.Dump {
		m.Dump(a.err)
	}
	if err != nil {
		return 1, err
	}
	a.log.Infof("halted with code %v", m.ExitCode())
	return m.ExitCode(), nil
}

func buildCommand(ctx context.Context, a *app, args []string) (int, error) {
	flags := a.flagSet("build", buildUsage)
	output := flags.String("o", a.cfg.Build.Output, "output assembly file; - or empty for stdout")
	if err := flags.Parse(args); err != nil {
		return 2, err
	}

	src, err := a.loadSource(flags.Args())
	if err != nil {
		return 2, err
	}

	if *output == "" || *output == "-" {
		if err := asmgen.WriteTo(a.out, src.Constants, src.Program); err != nil {
			return 1, err
		}
		return 0, nil
	}
	if err := asmgen.GenerateFile(*output, src.Constants, src.Program); err != nil {
		return 1, err
	}
	a.log.Infof("wrote %v", *output)
	return 0, nil
}

func packCommand(ctx context.Context, a *app, args []string) (int, error) {
	flags := a.flagSet("pack", packUsage)
	output := flags.String("o", "", "output image file; defaults to the program file name with a "+progfile.ImageExt+" extension")
	if err := flags.Parse(args); err != nil {
		return 2, err
	}

	src, err := a.loadSource(flags.Args())
	if err != nil {
		return 2, err
	}

	out := *output
	if out == "" {
		if rest := flags.Args(); len(rest) == 1 {
			if _, isFile := progfile.FormatOf(rest[0]); isFile {
				out = strings.TrimSuffix(rest[0], filepath.Ext(rest[0])) + progfile.ImageExt
			}
		}
	}
	if out == "" {
		return 2, errors.New("pack: no output file given")
	}

	data, err := src.MarshalImage()
	if err != nil {
		return 1, err
	}
	if err := artifact.WriteFile(out, data, 0644); err != nil {
		return 1, err
	}
	a.log.Infof("packed %v instructions into %v", len(src.Program), out)
	return 0, nil
}
