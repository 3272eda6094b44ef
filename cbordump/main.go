package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	cbor "github.com/yasmewad/cborscan/runtime"
)

// CLI defines the cbordump command-line interface.
//
// cbordump reads a CBOR payload from a file (or stdin when the input is
// "-") and prints it in diagnostic notation. With --trace it instead
// prints one line per token with the item window, which is the view the
// scanner itself exposes.
type CLI struct {
	Input    string `arg:"" optional:"" help:"Input file, or '-' for stdin" default:"-"`
	Hex      bool   `short:"x" help:"Treat input as hex text instead of raw bytes"`
	Trace    bool   `short:"t" help:"Print one line per token instead of diagnostic notation"`
	Validate bool   `short:"c" help:"Only check well-formedness, print nothing on success"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cbordump"),
		kong.Description("Print CBOR payloads in diagnostic notation."),
	)

	if err := run(&cli); err != nil {
		ctx.FatalIfErrorf(err)
	}
}

func run(cli *CLI) error {
	data, err := readInput(cli.Input)
	if err != nil {
		return err
	}
	if cli.Hex {
		data, err = decodeHexText(data)
		if err != nil {
			return err
		}
	}
	if len(data) == 0 {
		return fmt.Errorf("empty input")
	}

	if cli.Validate {
		return cbor.ValidateDocument(data)
	}
	if cli.Trace {
		return trace(data)
	}

	out, err := cbor.Diag(data)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func readInput(input string) ([]byte, error) {
	if input == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", input, err)
	}
	return data, nil
}

// decodeHexText accepts hex with arbitrary whitespace between bytes, so
// payloads can be pasted straight from test vectors or packet dumps.
func decodeHexText(data []byte) ([]byte, error) {
	var sb strings.Builder
	sb.Grow(len(data))
	for _, c := range data {
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			sb.WriteByte(c)
		}
	}
	out, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("decode hex input: %w", err)
	}
	return out, nil
}

// trace prints one line per token: byte offset of the item window, the
// window length, the token name, and the raw header byte.
func trace(data []byte) error {
	s := cbor.NewScanner(data)
	depth := 0
	for {
		tok, err := s.Advance()
		if err != nil {
			return err
		}
		if tok == cbor.TokenFinished {
			return nil
		}
		if tok == cbor.TokenEndArray || tok == cbor.TokenEndObject {
			depth--
		}
		pos, sz := s.Position(), s.ItemLength()
		indent := strings.Repeat("  ", depth)
		switch tok {
		case cbor.TokenStartArray, cbor.TokenStartObject:
			fmt.Printf("%06x %s%v size=%d\n", pos, indent, tok, s.CollectionSize())
			depth++
		case cbor.TokenEndArray, cbor.TokenEndObject:
			fmt.Printf("       %s%v\n", indent, tok)
		default:
			fmt.Printf("%06x %s%v len=%d\n", pos, indent, tok, sz)
		}
	}
}
