package main

import (
	"flag"
	"log"
	"os"
	"runtime/pprof"

	"github.com/skewer-chess/skewer/internal/book"
	"github.com/skewer-chess/skewer/internal/engine"
	"github.com/skewer-chess/skewer/internal/storage"
	"github.com/skewer-chess/skewer/internal/uci"
)

var (
	hashMB     = flag.Int("hash", 64, "transposition table size in MB")
	threads    = flag.Int("threads", 1, "number of search threads")
	useCache   = flag.Bool("cache", true, "persist the transposition table across sessions")
	bookFile   = flag.String("book", "", "Polyglot opening book to probe before searching")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	// Start CPU profiling if requested (via flag or environment variable).
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	var store *storage.Storage
	if *useCache {
		s, err := storage.Open()
		if err != nil {
			log.Printf("Warning: cache unavailable: %v", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	opts := engine.DefaultOptions()
	opts.HashMB = *hashMB
	opts.Threads = *threads

	// Stored preferences fill in whatever the flags left at their defaults.
	if store != nil {
		prefs, err := store.LoadPreferences()
		if err != nil {
			log.Printf("Warning: could not load preferences: %v", err)
		} else {
			set := map[string]bool{}
			flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
			if !set["hash"] {
				opts.HashMB = prefs.HashMB
			}
			if !set["threads"] {
				opts.Threads = prefs.Threads
			}
		}
	}

	protocol, err := uci.New(opts)
	if err != nil {
		log.Fatal(err)
	}

	if *bookFile != "" {
		bk, err := book.LoadPolyglot(*bookFile)
		if err != nil {
			log.Printf("Warning: opening book unavailable: %v", err)
		} else {
			protocol.SetBook(bk)
			log.Printf("Loaded opening book with %d positions", bk.Size())
		}
	}

	if store != nil {
		if tt := protocol.Engine().TT(); tt != nil {
			n, err := store.LoadTableSnapshot(tt)
			if err != nil {
				log.Printf("Warning: could not restore cached entries: %v", err)
			} else if n > 0 {
				log.Printf("Restored %d cached table entries", n)
			}
		}
	}

	protocol.Run()

	if store != nil {
		if tt := protocol.Engine().TT(); tt != nil {
			if err := store.SaveTableSnapshot(tt); err != nil {
				log.Printf("Warning: could not save table snapshot: %v", err)
			}
		}
		prefs := storage.DefaultPreferences()
		prefs.HashMB = opts.HashMB
		prefs.Threads = opts.Threads
		prefs.UseCache = *useCache
		if err := store.SavePreferences(prefs); err != nil {
			log.Printf("Warning: could not save preferences: %v", err)
		}
	}
}
