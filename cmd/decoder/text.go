package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/RowanDark/decoder/internal/cipher"
	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/service"
)

// textFlags are shared by every text command.
type textFlags struct {
	in   string
	text string
	out  string
	key  string
	seed uint64
}

func (a *app) textFlagSet(name string, withKey, withSeed bool) (*flag.FlagSet, *textFlags) {
	tf := &textFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&tf.in, "in", "", "read input text from file")
	fs.StringVar(&tf.text, "text", "", "input text")
	fs.StringVar(&tf.out, "out", "", "write output to file instead of stdout")
	if withKey {
		fs.StringVar(&tf.key, "key", "", "cipher key")
	}
	if withSeed {
		fs.Uint64Var(&tf.seed, "seed", 0, "seed for key generation (0 uses config or the OS)")
	}
	return fs, tf
}

func (a *app) readInput(tf *textFlags) (string, error) {
	switch {
	case tf.in != "" && tf.text != "":
		return "", errors.New("-in and -text are mutually exclusive")
	case tf.in != "":
		return imageio.ReadText(tf.in)
	case tf.text != "":
		return tf.text, nil
	default:
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
}

func (a *app) writeOutput(tf *textFlags, text string) error {
	if tf.out != "" {
		return imageio.WriteText(tf.out, text)
	}
	if strings.HasSuffix(text, "\n") {
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	_, err := fmt.Fprintln(a.stdout, text)
	return err
}

// keyService returns a service seeded by -seed when given.
func (a *app) keyService(tf *textFlags) *service.Service {
	if tf.seed == 0 {
		return a.svc
	}
	return service.New(service.Options{Audit: a.audit, Source: cipher.NewSeededSource(tf.seed)})
}

func (a *app) printKey(key string) {
	fmt.Fprintf(a.stderr, "key: %s\n", key)
}

func (a *app) runCaesarEncrypt(args []string) int {
	fs, tf := a.textFlagSet("caesar encrypt", true, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	var key *int
	if tf.key != "" {
		k, err := strconv.Atoi(strings.TrimSpace(tf.key))
		if err != nil {
			return a.fail(fmt.Errorf("%w: caesar key must be an integer", cipher.ErrInvalidKey))
		}
		key = &k
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	out, used, err := a.keyService(tf).ShiftEncrypt(context.Background(), text, key)
	if err != nil {
		return a.fail(err)
	}
	if key == nil {
		a.printKey(strconv.Itoa(used))
	}
	if err := a.writeOutput(tf, out); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) runCaesarDecrypt(args []string) int {
	fs, tf := a.textFlagSet("caesar decrypt", true, false)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if tf.key == "" {
		return a.fail(fmt.Errorf("%w: -key is required", cipher.ErrInvalidKey))
	}
	key, err := strconv.Atoi(strings.TrimSpace(tf.key))
	if err != nil {
		return a.fail(fmt.Errorf("%w: caesar key must be an integer", cipher.ErrInvalidKey))
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	out, err := a.svc.ShiftDecrypt(context.Background(), text, key)
	if err != nil {
		return a.fail(err)
	}
	if err := a.writeOutput(tf, out); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) runCaesarAuto(args []string) int {
	fs, tf := a.textFlagSet("caesar auto", false, false)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	out, err := a.svc.ShiftAutoDecrypt(context.Background(), text)
	if err != nil {
		return a.fail(err)
	}
	if err := a.writeOutput(tf, out); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) runEncrypt(name string, args []string) int {
	fs, tf := a.textFlagSet(name+" encrypt", true, true)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	out, used, err := a.keyService(tf).Encrypt(context.Background(), name, text, tf.key)
	if err != nil {
		return a.fail(err)
	}
	if tf.key == "" {
		a.printKey(used)
	}
	if err := a.writeOutput(tf, out); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) runDecrypt(name string, args []string) int {
	fs, tf := a.textFlagSet(name+" decrypt", true, false)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	out, err := a.svc.Decrypt(context.Background(), name, text, tf.key)
	if err != nil {
		return a.fail(err)
	}
	if err := a.writeOutput(tf, out); err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) runDetect(args []string) int {
	fs, tf := a.textFlagSet("detect", false, false)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	text, err := a.readInput(tf)
	if err != nil {
		return a.fail(err)
	}
	results, err := a.svc.Detect(context.Background(), strings.TrimRight(text, "\n"))
	if err != nil {
		return a.fail(err)
	}
	if len(results) == 0 {
		fmt.Fprintln(a.stdout, "no encoding detected")
		return 0
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENCODING\tCONFIDENCE\tOPERATION\tREASONING")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", r.Encoding, r.Confidence, r.Operation, r.Reasoning)
	}
	if err := tw.Flush(); err != nil {
		return a.fail(err)
	}
	return 0
}
