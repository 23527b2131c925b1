package main

import (
	"fmt"
	iofs "io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/KarpelesLab/tinyfs"
)

func main() {
	app := &cli.App{
		Name:  "tinyfsmount",
		Usage: "Mount a tinyfs disk image over FUSE",
		Commands: []*cli.Command{
			{
				Name:      "mount",
				Usage:     "Mount ./DISKFILE at MOUNTPOINT, formatting it first if it does not exist",
				ArgsUsage: "MOUNTPOINT",
				Action:    mountAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "debug", Usage: "log every FUSE request"},
					&cli.BoolFlag{Name: "foreground", Usage: "accepted for cross-compatibility; this command never daemonizes"},
				},
			},
			{
				Name:      "format",
				Usage:     "Create or wipe a disk image",
				ArgsUsage: "DISKFILE",
				Action:    formatAction,
			},
			{
				Name:      "ls",
				Usage:     "List files in a disk image without mounting it",
				ArgsUsage: "DISKFILE [PATH]",
				Action:    lsAction,
			},
			{
				Name:      "cat",
				Usage:     "Print a file's contents from a disk image without mounting it",
				ArgsUsage: "DISKFILE PATH",
				Action:    catAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatalf("tinyfsmount: %s", err)
	}
}

func formatAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("missing DISKFILE argument")
	}
	s, err := tinyfs.Format(c.Args().First())
	if err != nil {
		return err
	}
	return s.Close()
}

func lsAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: tinyfsmount ls DISKFILE [PATH]")
	}
	path := "."
	if c.Args().Len() >= 2 {
		path = c.Args().Get(1)
	}

	sess, err := tinyfs.Mount(c.Args().First())
	if err != nil {
		return err
	}
	defer sess.Close()

	fsys := tinyfs.IOFS(sess)
	ents, err := iofs.ReadDir(fsys, path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	for _, e := range ents {
		info, err := e.Info()
		if err != nil {
			return err
		}
		fmt.Printf("%s %8d %s\n", info.Mode(), info.Size(), e.Name())
	}
	return nil
}

func catAction(c *cli.Context) error {
	if c.Args().Len() < 2 {
		return fmt.Errorf("usage: tinyfsmount cat DISKFILE PATH")
	}

	sess, err := tinyfs.Mount(c.Args().First())
	if err != nil {
		return err
	}
	defer sess.Close()

	data, err := iofs.ReadFile(tinyfs.IOFS(sess), c.Args().Get(1))
	if err != nil {
		return fmt.Errorf("reading %s: %w", c.Args().Get(1), err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func mountAction(c *cli.Context) error {
	if c.Args().Len() < 1 {
		return fmt.Errorf("usage: tinyfsmount mount MOUNTPOINT")
	}
	diskPath := "DISKFILE"
	mountPoint := c.Args().Get(0)

	if c.Bool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}

	sess, err := tinyfs.Open(diskPath)
	if err != nil {
		return err
	}
	defer sess.Close()

	root := tinyfs.Root(sess)
	server, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName: "tinyfs",
			Name:   "tinyfs",
			Debug:  c.Bool("debug"),
		},
	})
	if err != nil {
		return fmt.Errorf("mounting %s at %s: %w", diskPath, mountPoint, err)
	}

	logrus.WithFields(logrus.Fields{
		"disk":       diskPath,
		"mount":      mountPoint,
		"foreground": c.Bool("foreground"),
	}).Info("tinyfs mounted")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		server.Unmount()
	}()

	server.Wait()
	return nil
}
