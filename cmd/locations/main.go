package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smukkama/openweather-panel/internal/database"
	"github.com/smukkama/openweather-panel/internal/geocode"
	"github.com/smukkama/openweather-panel/internal/location"
	"github.com/smukkama/openweather-panel/internal/owm"
	"github.com/smukkama/openweather-panel/pkg/config"
)

const usage = `Usage: locations <command> [arguments]

Commands:
  list                          show stored locations, * marks the active one
  search <query>                look up places by name
  add <query | "lat,lon>name">  add the first search hit or an explicit entry
  edit <index> <name> [lat,lon] rename or move a location
  remove <index>                delete a location
  select <index>                make a location active
  import <serialized>           append entries from a "lat,lon>name>0 && ..." string
  export                        print the list in serialized form

Send SIGHUP to a running weatherd to pick up changes.
`

// Searcher resolves free text to places
type Searcher interface {
	Search(ctx context.Context, query string) ([]geocode.Result, error)
}

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var store location.Store
	switch cfg.Locations.Store {
	case config.StorePostgres:
		db, err := database.Connect(cfg.Database.ConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.RunMigrations(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		store = database.NewLocationStore(db)
	case config.StoreMemory:
		log.Fatal("LOCATION_STORE=memory lives inside weatherd and cannot be edited from here")
	default:
		store = location.NewFileStore(cfg.Locations.File)
	}

	searcher := geocode.NewClient(cfg.Geocode.BaseURL, owm.UserAgent(cfg.App.ID, cfg.App.Version))

	if err := run(ctx, flag.Args(), store, searcher, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, errUsage) {
			flag.Usage()
		}
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid arguments")

func run(ctx context.Context, args []string, store location.Store, searcher Searcher, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]

	switch cmd {
	case "list":
		list, err := store.Load(ctx)
		if err != nil {
			return err
		}
		printList(out, list)
		return nil

	case "search":
		if len(args) == 0 {
			return errUsage
		}
		results, err := searcher.Search(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No results")
			return nil
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d  %s  (%s)\n", i, r.DisplayName, r.Coordinate())
		}
		return nil

	case "add":
		if len(args) == 0 {
			return errUsage
		}
		loc, err := resolve(ctx, strings.Join(args, " "), searcher)
		if err != nil {
			return err
		}
		return update(ctx, store, out, func(list *location.List) error {
			list.Add(loc)
			fmt.Fprintf(out, "Added %s (%s)\n", loc.Name, loc.Coordinate())
			return nil
		})

	case "edit":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		idx, err := strconv.Atoi(args[0])
		if err != nil {
			return errUsage
		}
		return update(ctx, store, out, func(list *location.List) error {
			if idx < 0 || idx >= list.Len() {
				return fmt.Errorf("location index %d out of range [0,%d)", idx, list.Len())
			}
			loc := list.Locations[idx]
			if loc.Invalid && len(args) == 2 {
				return fmt.Errorf("location %d has no valid coordinate, pass one", idx)
			}
			loc.Name = args[1]
			if len(args) == 3 {
				coord, err := location.ParseCoordinate(args[2])
				if err != nil {
					return err
				}
				loc.Latitude, loc.Longitude = coord.Latitude, coord.Longitude
			}
			loc.Invalid, loc.Raw = false, ""
			if loc.Provider == location.ProviderUnset {
				loc.Provider = location.ProviderOpenWeatherMap
			}
			return list.Update(idx, loc)
		})

	case "remove":
		idx, err := indexArg(args)
		if err != nil {
			return err
		}
		return update(ctx, store, out, func(list *location.List) error {
			removed, err := list.Remove(idx)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %s\n", removed.Name)
			return nil
		})

	case "select":
		idx, err := indexArg(args)
		if err != nil {
			return err
		}
		return update(ctx, store, out, func(list *location.List) error {
			if idx < 0 || idx >= list.Len() {
				return fmt.Errorf("location index %d out of range [0,%d)", idx, list.Len())
			}
			list.SetActive(idx)
			return nil
		})

	case "import":
		if len(args) == 0 {
			return errUsage
		}
		imported, decodeErr := location.Decode(strings.Join(args, " "))
		err := update(ctx, store, out, func(list *location.List) error {
			for _, loc := range imported.Locations {
				if loc.Invalid {
					fmt.Fprintf(out, "Skipped invalid entry %q\n", loc.Raw)
					continue
				}
				list.Add(loc)
			}
			return nil
		})
		if err != nil {
			return err
		}
		if decodeErr != nil {
			return decodeErr
		}
		return nil

	case "export":
		list, err := store.Load(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, location.Encode(list))
		return nil

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// resolve turns an explicit "lat,lon>name[>provider]" entry or a search
// query into a location
func resolve(ctx context.Context, arg string, searcher Searcher) (location.Location, error) {
	if strings.Contains(arg, location.FieldSeparator) {
		list, err := location.Decode(arg)
		if err != nil {
			return location.Location{}, err
		}
		if list.Len() != 1 {
			return location.Location{}, fmt.Errorf("expected one entry, got %d", list.Len())
		}
		loc := list.Locations[0]
		if loc.Provider == location.ProviderUnset {
			loc.Provider = location.ProviderOpenWeatherMap
		}
		return loc, nil
	}

	results, err := searcher.Search(ctx, arg)
	if err != nil {
		return location.Location{}, err
	}
	if len(results) == 0 {
		return location.Location{}, fmt.Errorf("no place found for %q", arg)
	}
	return results[0].Location()
}

func update(ctx context.Context, store location.Store, out io.Writer, fn func(*location.List) error) error {
	list, err := store.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(&list); err != nil {
		return err
	}
	if err := store.Save(ctx, list); err != nil {
		return err
	}
	printList(out, list)
	return nil
}

func indexArg(args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: index %q", errUsage, args[0])
	}
	return idx, nil
}

func printList(out io.Writer, list location.List) {
	if list.Len() == 0 {
		fmt.Fprintln(out, "No locations")
		return
	}
	active := list.ActiveIndex()
	for i, loc := range list.Locations {
		marker := " "
		if i == active {
			marker = "*"
		}
		if loc.Invalid {
			fmt.Fprintf(out, "%s %d  %s  (invalid: %q)\n", marker, i, loc.Name, loc.Raw)
			continue
		}
		fmt.Fprintf(out, "%s %d  %s  (%s)\n", marker, i, loc.Name, loc.Coordinate())
	}
}
