package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/arch/x86/x86asm"

	"gitlab.com/stephen-fox/memwalk/asmkit"
	"gitlab.com/stephen-fox/memwalk/dumper"
	"gitlab.com/stephen-fox/memwalk/memory"
)

const (
	prettyFormat = "pretty"
	jsonFormat   = "json"
	goFormat     = "go"
)

type disasmOptions struct {
	offset int64
	length int
	syntax string
	format string
	demo   bool
}

func (o *app) newDisasmCommand() *cobra.Command {
	opts := &disasmOptions{}

	cmd := &cobra.Command{
		Use:   "disasm",
		Short: "Disassemble the code around the profile's signature match",
		Long: `disasm locates the profile's signature like dump does and disassembles
the code starting at the match. It is useful for checking a profile's
displacement offsets against the actual instructions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var d *dumper.Dumper

			if opts.demo {
				demo, err := dumper.NewDemo()
				if err != nil {
					return err
				}

				d = demo.Dumper()
			} else {
				p, err := o.currentProfile()
				if err != nil {
					return err
				}

				d = &dumper.Dumper{
					Profile: p,
				}
			}

			d.OptLogger = o.logger
			defer d.Close()

			loc, err := d.Locate()
			if err != nil {
				return err
			}

			return disassemble(o.stdout, loc.View, uint64(int64(loc.Match)+opts.offset), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.offset, "offset", 0,
		"Offset relative to the match to start disassembling at")
	cmd.Flags().IntVarP(&opts.length, "length", "n", 32,
		"Number of bytes to disassemble")
	cmd.Flags().StringVarP(&opts.syntax, "syntax", "s", string(asmkit.IntelSyntax),
		fmt.Sprintf("Assembly syntax (%s, %s, %s)", asmkit.IntelSyntax, asmkit.ATTSyntax, asmkit.GoSyntax))
	cmd.Flags().StringVarP(&opts.format, formatArg, "f", prettyFormat,
		fmt.Sprintf("Output format (%s, %s, %s)", prettyFormat, jsonFormat, goFormat))
	cmd.Flags().BoolVar(&opts.demo, "demo", false,
		"Disassemble the synthetic demo image instead")

	return cmd
}

func disassemble(w io.Writer, view memory.View, addr uint64, opts *disasmOptions) error {
	var writer instWriter

	switch opts.format {
	case prettyFormat:
		writer = &disassWriter{w: w}
	case jsonFormat:
		writer = &jsonDisassWriter{w: w, indent: "  "}
	case goFormat:
		writer = &goByteSliceWriter{w: w}
	default:
		return fmt.Errorf("unsupported output format: %q", opts.format)
	}

	code := make([]byte, opts.length)

	err := view.ReadAt(code, addr)
	if err != nil {
		return err
	}

	disassembler, err := asmkit.NewDisassembler(asmkit.DisassemblerConfig{
		Syntax: asmkit.DisassemblySyntax(opts.syntax),
		Bits:   64,
		PC:     addr,
	})
	if err != nil {
		return err
	}

	// The length limit usually cuts the last instruction short.
	err = disassembler.All(code, writer.Write)
	if err != nil && !errors.Is(err, x86asm.ErrTruncated) {
		return err
	}

	return writer.Flush()
}

type instWriter interface {
	Write(asmkit.Inst) error
	Flush() error
}

var _ instWriter = (*disassWriter)(nil)

type disassWriter struct {
	w io.Writer
}

func (o *disassWriter) Write(inst asmkit.Inst) error {
	_, err := fmt.Fprintf(o.w, "0x%x  %-24x  %s\n", inst.PC, inst.Bin, inst.Dis)
	return err
}

func (o *disassWriter) Flush() error {
	return nil
}

var _ instWriter = (*jsonDisassWriter)(nil)

type jsonDisassWriter struct {
	indent string
	w      io.Writer
	insts  []asmkit.Inst
}

type jsonInst struct {
	Addr string `json:"addr"`
	Hex  string `json:"hex"`
	Dis  string `json:"dis"`
}

func (o *jsonDisassWriter) Write(inst asmkit.Inst) error {
	o.insts = append(o.insts, inst)

	return nil
}

func (o *jsonDisassWriter) Flush() error {
	enc := json.NewEncoder(o.w)

	enc.SetIndent("", o.indent)

	items := make([]jsonInst, len(o.insts))
	for i, inst := range o.insts {
		items[i] = jsonInst{
			Addr: fmt.Sprintf("0x%x", inst.PC),
			Hex:  fmt.Sprintf("%x", inst.Bin),
			Dis:  inst.Dis,
		}
	}

	return enc.Encode(items)
}

var _ instWriter = (*goByteSliceWriter)(nil)

type goByteSliceWriter struct {
	w     io.Writer
	insts []asmkit.Inst
}

func (o *goByteSliceWriter) Write(inst asmkit.Inst) error {
	if len(o.insts) == 0 {
		_, err := o.w.Write([]byte("[]byte{\n"))
		if err != nil {
			return err
		}
	}

	o.insts = append(o.insts, inst)

	_, err := o.w.Write([]byte{'\t'})
	if err != nil {
		return err
	}

	for _, b := range inst.Bin {
		_, err = fmt.Fprintf(o.w, "0x%02x, ", b)
		if err != nil {
			return err
		}
	}

	_, err = o.w.Write([]byte("// " + inst.Dis + "\n"))
	return err
}

func (o *goByteSliceWriter) Flush() error {
	if len(o.insts) == 0 {
		return nil
	}

	_, err := o.w.Write([]byte("}\n"))
	return err
}
