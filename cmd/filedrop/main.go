// Command filedrop uploads files to a filedrop relay and keeps a local
// history of the resulting shareable links.
//
// Usage:
//
//	filedrop [flags] upload <file>...
//	filedrop [flags] history
//	filedrop [flags] clear-history
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/filedrop/service/internal/history"
	"github.com/filedrop/service/internal/session"
	"github.com/filedrop/service/internal/uploader"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "relay server base URL")
	historyDir := flag.String("history-dir", defaultHistoryDir(), "directory for the local history database")
	maxSize := flag.Int64("max-size", session.DefaultMaxFileSize, "maximum file size in bytes")
	publicGateway := flag.String("gateway", "https://spfs-gateway.thestratos.net", "public gateway base for shareable links")
	timeout := flag.Duration("timeout", 0, "upload timeout (0 = transport default)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "upload":
		if len(args) < 2 {
			log.Fatal("upload: at least one file is required")
		}
		os.Exit(runUpload(*serverURL, *historyDir, *publicGateway, *maxSize, *timeout, args[1:]))
	case "history":
		os.Exit(runHistory(*historyDir))
	case "clear-history":
		os.Exit(runClearHistory(*historyDir))
	default:
		log.Fatalf("unknown command %q", args[0])
	}
}

func runUpload(serverURL, historyDir, publicGateway string, maxSize int64, timeout time.Duration, paths []string) int {
	var hist session.HistoryAppender
	store, err := history.Open(historyDir)
	if err != nil {
		log.Printf("history disabled: %v", err)
	} else {
		defer store.Close()
		hist = store
	}

	links := session.LinkBuilder{PublicGateway: publicGateway, FallbackGateway: publicGateway}
	mgr := session.NewManager(session.NewRegistry(), uploader.New(serverURL, timeout), hist, links, maxSize)

	ctx := context.Background()
	var dones []<-chan struct{}
	for _, path := range paths {
		src, err := session.NewOSFile(path)
		if err != nil {
			log.Fatalf("open %s: %v", path, err)
		}
		_, done := mgr.Start(ctx, src)
		dones = append(dones, done)
	}

	reportProgress(mgr.Registry(), dones)

	exit := 0
	for _, s := range mgr.Registry().ListAll() {
		switch s.Status {
		case session.StatusComplete:
			fmt.Printf("%s\n  CID:  %s\n  Link: %s\n", s.FileName, s.CID, s.ShareableLink)
		default:
			fmt.Printf("%s\n  Error: %s\n", s.FileName, s.ErrorMessage)
			exit = 1
		}
	}
	return exit
}

// reportProgress prints a progress line whenever any session advances, until
// every session is terminal.
func reportProgress(reg *session.Registry, dones []<-chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	last := make(map[string]int)
	for {
		remaining := 0
		for _, done := range dones {
			select {
			case <-done:
			default:
				remaining++
			}
		}

		for _, s := range reg.ListAll() {
			if s.Status == session.StatusUploading && s.Progress != last[s.ID] {
				last[s.ID] = s.Progress
				fmt.Printf("uploading %s: %d%%\n", s.FileName, s.Progress)
			}
		}

		if remaining == 0 {
			return
		}
		<-ticker.C
	}
}

func runHistory(historyDir string) int {
	store, err := history.Open(historyDir)
	if err != nil {
		log.Printf("open history: %v", err)
		return 1
	}
	defer store.Close()

	records, err := store.ListAll()
	if err != nil {
		log.Printf("list history: %v", err)
		return 1
	}
	if len(records) == 0 {
		fmt.Println("no uploads recorded")
		return 0
	}
	for _, rec := range records {
		fmt.Printf("%s  %s  %s\n  %s\n",
			rec.CreatedAt.Format(time.RFC3339), rec.FileName, rec.FileSize, rec.ShareableLink)
	}
	return 0
}

func runClearHistory(historyDir string) int {
	store, err := history.Open(historyDir)
	if err != nil {
		log.Printf("open history: %v", err)
		return 1
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		log.Printf("clear history: %v", err)
		return 1
	}
	fmt.Println("history cleared")
	return 0
}

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filedrop"
	}
	return filepath.Join(home, ".filedrop", "history")
}
