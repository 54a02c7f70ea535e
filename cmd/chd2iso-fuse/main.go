package main

import (
	"fmt"
	"os"

	"github.com/lloydsmart/chd2iso-fuse/internal/framecache"
	"github.com/lloydsmart/chd2iso-fuse/internal/fsadapter"
	"github.com/lloydsmart/chd2iso-fuse/internal/index"

	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"
)

var (
	sourceDir    string
	mountDir     string
	allowOther   bool
	cacheHunks   int
	cacheBytes   int
	cdAllowForm2 bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "chd2iso-fuse",
	Short: "Mount a directory of CHD disc images as plain ISO/BIN files",
	Long: `chd2iso-fuse scans a directory of MAME CHD archives and mounts a
read-only FUSE filesystem that presents each one as a flat .iso (or, for
opted-in Mode 2 Form 2 CD tracks, "<name> (Form2).bin") file, decompressing
hunks on demand as clients read them.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVarP(&sourceDir, "source", "s", "", "directory containing CHD archives (required)")
	rootCmd.Flags().StringVarP(&mountDir, "mount", "m", "", "existing mountpoint (required)")
	rootCmd.Flags().BoolVar(&allowOther, "allow-other", false, "request cross-user visibility from the bridge")
	rootCmd.Flags().IntVar(&cacheHunks, "cache-hunks", 256, "LRU frame cache entry cap (0 is treated as 64)")
	rootCmd.Flags().IntVar(&cacheBytes, "cache-bytes", 256*1024*1024, "LRU frame cache byte soft cap")
	rootCmd.Flags().BoolVar(&cdAllowForm2, "cd-allow-form2", false, "expose Mode 2 Form 2 tracks as \"<name> (Form2).bin\"")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "raise log level from warn to info")
	_ = rootCmd.MarkFlagRequired("source")
	_ = rootCmd.MarkFlagRequired("mount")
}

func run(cmd *cobra.Command, args []string) error {
	log := fsadapter.Logger{Verbose: verbose}

	if _, err := os.Stat(mountDir); err != nil {
		return fmt.Errorf("mountpoint %s does not exist or is not accessible: %w", mountDir, err)
	}

	idx, err := index.Build(sourceDir, cdAllowForm2, log.Warnf)
	if err != nil {
		return fmt.Errorf("building index over %s: %w", sourceDir, err)
	}
	log.Infof("indexed %d archive(s) from %s", len(idx.Entries), sourceDir)

	cache, err := framecache.New(cacheHunks, cacheBytes)
	if err != nil {
		return fmt.Errorf("building frame cache: %w", err)
	}

	adapter := fsadapter.New(idx, cache)
	rawFS := fsadapter.NewRawFS(adapter, log)

	// "ro" and "default_permissions" are passed straight through to
	// fusermount; "auto_unmount" asks it to lazy-unmount once this
	// process exits, the same guarantee the original Rust daemon gets
	// from fuser's MountOption::AutoUnmount.
	mountOpts := &fuse.MountOptions{
		FsName:     "chd2iso",
		Name:       "chd2iso",
		AllowOther: allowOther,
		Options:    []string{"ro", "default_permissions", "auto_unmount"},
	}

	server, err := fuse.NewServer(rawFS, mountDir, mountOpts)
	if err != nil {
		return fmt.Errorf("mounting %s at %s: %w", sourceDir, mountDir, err)
	}

	log.Infof("mounting %s -> %s (entries: %d)", sourceDir, mountDir, len(idx.Entries))
	server.Serve()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
