package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/airbusgeo/georef/cmd"
	"github.com/airbusgeo/georef/internal/export"
	"github.com/airbusgeo/georef/internal/georef"
	"github.com/airbusgeo/georef/internal/log"
	"github.com/airbusgeo/georef/internal/svc"
	"github.com/airbusgeo/georef/internal/utils"
	"github.com/airbusgeo/georef/internal/utils/proj"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()
	app := cli.NewApp()
	app.Name = "georef"
	app.Usage = "fit georeferencing transforms from ground control points"
	app.Version = "0.1.0"
	app.Flags = append([]cli.Flag{
		cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error (default: $" + log.LevelEnv + " or debug)"},
		cli.StringFlag{Name: "log-file", Usage: "write the logs to a rotated file instead of stderr"},
		cli.BoolFlag{Name: "console", Usage: "human-readable logs"},
	}, cmd.GDALConfigFlags()...)
	app.Before = func(c *cli.Context) error {
		setupLogging(c)
		return cmd.InitGDAL(ctx, cmd.NewGDALConfig(c))
	}
	app.After = func(c *cli.Context) error {
		_ = log.Sync()
		return nil
	}
	sessionFlag := cli.StringFlag{Name: "session, s", Required: true, Usage: "session file (yaml)"}
	app.Commands = []cli.Command{
		{
			Name:   "methods",
			Usage:  "list the transform methods",
			Action: cliMethods,
		},
		{
			Name:        "fit",
			Usage:       "fit the transform of a session and print its parameters and residuals",
			Description: "ex: georef fit -s session.yaml --method Polynomial2",
			Action:      func(c *cli.Context) error { return cliFit(ctx, c) },
			Flags: []cli.Flag{
				sessionFlag,
				cli.StringFlag{Name: "method", Usage: "override the method of the session"},
				cli.StringFlag{Name: "save", Usage: "save the session to this file"},
			},
		},
		{
			Name:        "transform",
			Usage:       "transform points with the fitted transform of a session",
			Description: "ex: georef transform -s session.yaml 12.5,40 100,80 (points are read from stdin if none is given)",
			ArgsUsage:   "x,y ...",
			Action:      func(c *cli.Context) error { return cliTransform(ctx, c) },
			Flags: []cli.Flag{
				sessionFlag,
				cli.BoolFlag{Name: "inverse", Usage: "transform from world to raster"},
				cli.IntFlag{Name: "workers", Value: 4, Usage: "number of concurrent workers"},
				cli.StringFlag{Name: "gpx", Usage: "also write the world points as GPX waypoints (needs destination_crs)"},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Logger(ctx).Error("georef failed", zap.Error(err))
		_ = log.Sync()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(c *cli.Context) {
	if lvl := c.GlobalString("log-level"); lvl != "" {
		os.Setenv(log.LevelEnv, lvl)
	}
	switch {
	case c.GlobalString("log-file") != "":
		log.ToFile(c.GlobalString("log-file"), c.GlobalBool("console"))
	case c.GlobalBool("console"):
		log.Console()
	default:
		log.Structured()
	}
}

func cliMethods(c *cli.Context) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "METHOD\tMIN GCPS\tACCURATE INVERSE")
	for _, m := range georef.TransformMethodValues() {
		if m == georef.InvalidTransform {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%t\n", m, m.MinimumGCPCount(), m.ProvidesAccurateInverse())
	}
	return w.Flush()
}

func loadSession(ctx context.Context, path string) (*svc.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sf, err := svc.ReadSessionFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sf.NewSession(ctx)
}

func cliFit(ctx context.Context, c *cli.Context) error {
	session, err := loadSession(ctx, c.String("session"))
	if err != nil {
		return err
	}
	ctx = session.Context(ctx)
	if m := c.String("method"); m != "" {
		method, err := georef.TransformMethodString(m)
		if err != nil {
			return err
		}
		session.SelectMethod(ctx, method)
	}
	if !session.Ready() {
		if err := session.Fit(ctx); err != nil {
			return err
		}
	}
	if err := printFit(os.Stdout, session); err != nil {
		return err
	}
	if path := c.String("save"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := session.File().Write(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	return nil
}

func printFit(out io.Writer, session *svc.Session) error {
	gt := session.Snapshot()
	fmt.Fprintf(out, "method: %s\n", gt.TransformParametrisation())
	if origin, sx, sy, rotation, ok := gt.OriginScaleRotation(); ok {
		fmt.Fprintf(out, "origin: %f, %f\nscale: %.9g, %.9g\nrotation: %.6f deg\n",
			origin.X, origin.Y, sx, sy, rotation*proj.RadToDeg)
	}

	res, err := session.Residuals()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "GCP\tDX\tDY\tRESIDUAL (%s)\n", res.Unit)
	for _, r := range res.Points {
		fmt.Fprintf(w, "%s\t%.4f\t%.4f\t%.4f\n", r.ID, r.DX, r.DY, r.Magnitude)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "rms: %.4f %s\n", res.RMSError(), res.Unit)
	return nil
}

func cliTransform(ctx context.Context, c *cli.Context) error {
	session, err := loadSession(ctx, c.String("session"))
	if err != nil {
		return err
	}
	ctx = session.Context(ctx)
	if !session.Ready() {
		if err := session.Fit(ctx); err != nil {
			return err
		}
	}

	var points []georef.Point
	if c.NArg() > 0 {
		points, err = parsePoints(c.Args())
	} else {
		points, err = readPoints(bufio.NewScanner(os.Stdin))
	}
	if err != nil {
		return err
	}

	rasterToWorld := !c.Bool("inverse")
	res, err := session.TransformBatch(ctx, points, rasterToWorld, c.Int("workers"))
	if err != nil {
		return err
	}
	for _, p := range res {
		fmt.Println(utils.PointToS(p.X, p.Y))
	}

	if path := c.String("gpx"); path != "" {
		world := res
		if !rasterToWorld {
			world = points
		}
		return writeGPX(session, path, world)
	}
	return nil
}

func writeGPX(session *svc.Session, path string, world []georef.Point) error {
	crs, err := session.DestinationCRS()
	if err != nil {
		return err
	}
	if crs == nil {
		return fmt.Errorf("--gpx: the session has no destination_crs")
	}
	defer crs.Close()
	names := make([]string, len(world))
	for i := range names {
		names[i] = fmt.Sprintf("P%d", i+1)
	}
	b, err := export.GPX(crs, names, world)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
