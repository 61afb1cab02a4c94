package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/RowanDark/decoder/internal/imageio"
	"github.com/RowanDark/decoder/internal/stego"
)

func (a *app) runMerge(args []string) int {
	fs := flag.NewFlagSet("stego merge", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	carrierPath := fs.String("carrier", "", "image that stays visible")
	payloadPath := fs.String("payload", "", "image to hide")
	outPath := fs.String("out", "", "output image (png, bmp or tiff)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *carrierPath == "" || *payloadPath == "" || *outPath == "" {
		fmt.Fprintln(a.stderr, "-carrier, -payload and -out are required")
		return 2
	}
	if _, err := imageio.LosslessFormatFor(*outPath); err != nil {
		return a.fail(err)
	}

	carrier, err := imageio.ReadImage(*carrierPath, a.maxImageBytes)
	if err != nil {
		return a.fail(err)
	}
	payload, err := imageio.ReadImage(*payloadPath, a.maxImageBytes)
	if err != nil {
		return a.fail(err)
	}
	merged, err := a.svc.Merge(context.Background(), carrier, payload)
	if err != nil {
		return a.fail(err)
	}
	if err := imageio.WriteImage(*outPath, merged); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "merged %dx%d payload into %dx%d carrier: %s\n",
		payload.Width, payload.Height, carrier.Width, carrier.Height, *outPath)
	return 0
}

func (a *app) runUnmerge(args []string) int {
	fs := flag.NewFlagSet("stego unmerge", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	inPath := fs.String("in", "", "image carrying a hidden payload")
	outPath := fs.String("out", "", "output image for the recovered payload (png, bmp or tiff)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *inPath == "" || *outPath == "" {
		fmt.Fprintln(a.stderr, "-in and -out are required")
		return 2
	}
	if _, err := imageio.LosslessFormatFor(*outPath); err != nil {
		return a.fail(err)
	}

	img, err := imageio.ReadImage(*inPath, a.maxImageBytes)
	if err != nil {
		return a.fail(err)
	}
	payload, err := a.svc.Unmerge(context.Background(), img)
	if err != nil {
		return a.fail(err)
	}
	if err := imageio.WriteImage(*outPath, payload); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "recovered %dx%d payload: %s\n", payload.Width, payload.Height, *outPath)
	if payload.Width == img.Width && payload.Height == img.Height && allBlack(payload) {
		fmt.Fprintln(a.stderr, "warning: no hidden content found")
	}
	return 0
}

func allBlack(g *stego.PixelGrid) bool {
	for _, p := range g.Pix {
		if !p.Black() {
			return false
		}
	}
	return true
}
