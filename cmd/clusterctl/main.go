// Command clusterctl launches a local federation of guardian
// subprocesses (with more than one guardian, each is started with
// --peers, so they key themselves by DKG), waits for every /health endpoint to answer, and signs one
// message through the coordinator. It does not drive refresh or
// redeal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/frostfed/guardian/internal/cluster"
	"github.com/frostfed/guardian/internal/coordinator"
)

var (
	binaryFlag     = &cli.StringFlag{Name: "binary", Value: "guardian", Usage: "path to the guardian executable"}
	baseDirFlag    = &cli.StringFlag{Name: "base-dir", Usage: "root directory for per-guardian cache dirs (default: temp dir)"}
	nFlag          = &cli.UintFlag{Name: "n", Value: 3, Usage: "federation size"}
	tFlag          = &cli.UintFlag{Name: "t", Value: 2, Usage: "signing threshold"}
	messageFlag    = &cli.StringFlag{Name: "message", Value: "clusterctl demo message", Usage: "message to sign once the federation is ready"}
)

func main() {
	app := &cli.App{
		Name:  "clusterctl",
		Usage: "launch a local guardian federation and run the bootstrap-and-sign demo",
		Flags: []cli.Flag{binaryFlag, baseDirFlag, nFlag, tFlag, messageFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "clusterctl:", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	n := uint16(c.Uint(nFlag.Name))
	t := uint16(c.Uint(tFlag.Name))
	baseDir := c.String(baseDirFlag.Name)
	if baseDir == "" {
		var err error
		baseDir, err = os.MkdirTemp("", "clusterctl-*")
		if err != nil {
			return err
		}
	}

	cl, err := cluster.New(c.String(binaryFlag.Name), baseDir)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer cl.Shutdown()

	ports := make([]int, n)
	for i := uint16(1); i <= n; i++ {
		port, err := cluster.FreePort()
		if err != nil {
			return err
		}
		ports[i-1] = port
	}
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://127.0.0.1:%d", ports[i])
	}

	indices := make([]uint16, n)
	for i := range indices {
		indices[i] = uint16(i + 1)
	}

	for i := uint16(1); i <= n; i++ {
		peers := cluster.PeerArgList(urls, int(i), indices)
		args := []string{
			"--max-signers", strconv.Itoa(int(n)),
			"--min-signers", strconv.Itoa(int(t)),
		}
		if peers != "" {
			args = append(args, "--peers", peers)
		}
		if _, err := cl.Spawn(ctx, i, ports[i-1], args); err != nil {
			return fmt.Errorf("spawn guardian %d: %w", i, err)
		}
	}

	fmt.Println("waiting for federation to become healthy:", strings.Join(urls, ", "))
	if err := cl.WaitHealthy(ctx); err != nil {
		return err
	}

	co, err := coordinator.New(ctx, cl.URLs())
	if err != nil {
		return fmt.Errorf("probe federation: %w", err)
	}

	message := []byte(c.String(messageFlag.Name))
	sig, err := co.Sign(ctx, message)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}
	if !co.Verify(message, sig) {
		return fmt.Errorf("aggregated signature failed verification")
	}
	fmt.Printf("signed %q: %x\n", message, sig)
	return nil
}
