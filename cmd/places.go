package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"bitebook/internal/model"
	"bitebook/internal/places"
	"bitebook/internal/util"
	"bitebook/internal/view"

	"github.com/spf13/cobra"
)

var (
	listSearch string
	listType   string
	listStatus string
	listSort   string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List places",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one place",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var (
	addName     string
	addType     string
	addLocation string
	addAddress  string
	addCuisine  string
	addNotes    string
	addVisited  bool
	addRating   float64
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a place",
	Args:  cobra.NoArgs,
	RunE:  runAdd,
}

var (
	visitRating float64
	visitNotes  string
)

var visitCmd = &cobra.Command{
	Use:   "visit <id>",
	Short: "Mark a place as visited with a rating",
	Args:  cobra.ExactArgs(1),
	RunE:  runVisit,
}

var unvisitCmd = &cobra.Command{
	Use:   "unvisit <id>",
	Short: "Mark a place as not visited, clearing its rating and notes",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnvisit,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a place",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	listCmd.Flags().StringVar(&listSearch, "search", "", "Match name or location")
	listCmd.Flags().StringVar(&listType, "type", view.TypeAll, "all, restaurant, bar or cafe")
	listCmd.Flags().StringVar(&listStatus, "status", view.StatusAll, "all, visited or toVisit")
	listCmd.Flags().StringVar(&listSort, "sort", view.SortRecentlyAdded, "recentlyAdded, recentlyEdited, alphabetical or rating")

	addCmd.Flags().StringVar(&addName, "name", "", "Place name (required)")
	addCmd.Flags().StringVar(&addType, "type", string(model.TypeRestaurant), "Restaurant, Bar or Cafe")
	addCmd.Flags().StringVar(&addLocation, "location", "", "Short location, e.g. city (required)")
	addCmd.Flags().StringVar(&addAddress, "address", "", "Full street address")
	addCmd.Flags().StringVar(&addCuisine, "cuisine", "", "Cuisine")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Notes (visited places only)")
	addCmd.Flags().BoolVar(&addVisited, "visited", false, "Already visited")
	addCmd.Flags().Float64Var(&addRating, "rating", 0, "Rating 0-5 (implies --visited)")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("location")

	visitCmd.Flags().Float64Var(&visitRating, "rating", 0, "Rating 0-5 (required)")
	visitCmd.Flags().StringVar(&visitNotes, "notes", "", "Notes")
	_ = visitCmd.MarkFlagRequired("rating")
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func runList(cmd *cobra.Command, args []string) error {
	f := view.Filters{Search: listSearch, Type: listType, VisitedStatus: listStatus, SortBy: listSort}
	if err := validateFilters(f); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	all, err := cfg.placesClient().List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load places: %w", err)
	}
	printPlaces(os.Stdout, view.Derive(all, f), len(all), time.Now())
	return nil
}

func validateFilters(f view.Filters) error {
	if err := view.Validate(view.TypeOptions, f.Type, "type"); err != nil {
		return err
	}
	if err := view.Validate(view.StatusOptions, f.VisitedStatus, "status"); err != nil {
		return err
	}
	return view.Validate(view.SortOptions, f.SortBy, "sort")
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	p, err := cfg.placesClient().Get(ctx, args[0])
	if err != nil {
		if places.IsNotFound(err) {
			return fmt.Errorf("place %s not found", args[0])
		}
		return fmt.Errorf("failed to load place: %w", err)
	}
	if p == nil {
		return fmt.Errorf("place %s not found", args[0])
	}
	printPlace(os.Stdout, *p, time.Now())
	return nil
}

func runAdd(cmd *cobra.Command, args []string) error {
	np, err := buildNewPlace(cmd.Flags().Changed("rating"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	if err := cfg.placesClient().Add(ctx, np); err != nil {
		return fmt.Errorf("failed to add place: %w", err)
	}
	fmt.Printf("Added %s\n", np.Name)
	return nil
}

func buildNewPlace(ratingSet bool) (model.NewPlace, error) {
	placeType, err := model.ParsePlaceType(addType)
	if err != nil {
		return model.NewPlace{}, err
	}
	np := model.NewPlace{
		Name:        strings.TrimSpace(addName),
		Type:        placeType,
		Location:    strings.TrimSpace(addLocation),
		FullAddress: strings.TrimSpace(addAddress),
		Cuisine:     strings.TrimSpace(addCuisine),
		Visited:     addVisited || ratingSet,
	}
	if np.Location == "" {
		return model.NewPlace{}, fmt.Errorf("location is required")
	}
	if np.Visited {
		np.Notes = strings.TrimSpace(addNotes)
	}
	if ratingSet {
		r := addRating
		np.Rating = &r
	}
	if err := np.Validate(); err != nil {
		return model.NewPlace{}, err
	}
	return np, nil
}

func runVisit(cmd *cobra.Command, args []string) error {
	if err := model.ValidateRating(visitRating); err != nil {
		return err
	}
	return updatePlace(cmd, args[0], model.VisitUpdate(visitRating, strings.TrimSpace(visitNotes)),
		fmt.Sprintf("Marked %s as visited (rated %s)", args[0], util.FormatRating(&visitRating)))
}

func runUnvisit(cmd *cobra.Command, args []string) error {
	return updatePlace(cmd, args[0], model.UnvisitUpdate(), fmt.Sprintf("Marked %s as not visited", args[0]))
}

func updatePlace(cmd *cobra.Command, id string, u model.PlaceUpdate, done string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	if err := cfg.placesClient().Update(ctx, id, u); err != nil {
		return fmt.Errorf("failed to update place: %w", err)
	}
	fmt.Println(done)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(cmd)
	defer cancel()

	if err := cfg.placesClient().Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// printPlaces writes rows as an aligned table followed by a count line.
func printPlaces(w io.Writer, rows []model.Place, total int, now time.Time) {
	if total == 0 {
		fmt.Fprintln(w, "No places yet.")
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No places match these filters.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tLOCATION\tSTATUS\tRATING\tADDED")
	for _, p := range rows {
		status := "want to visit"
		if p.Visited {
			status = "visited"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID,
			util.TruncateString(p.Name, 32),
			p.Type,
			util.TruncateString(p.Location, 24),
			status,
			util.FormatRating(p.Rating),
			util.FormatDateHuman(p.CreatedAt, now),
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d of %d places\n", len(rows), total)
}

// printPlace writes every known field of p, one per line.
func printPlace(w io.Writer, p model.Place, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(tw, "%s:\t%s\n", label, value)
		}
	}

	field("Name", p.Name)
	field("ID", p.ID)
	field("Type", string(p.Type))
	field("Location", p.Location)
	field("Address", p.FullAddress)
	field("Cuisine", p.Cuisine)
	field("Influence", p.Influence)
	if p.Visited {
		field("Status", "Visited")
		field("Rating", util.FormatRating(p.Rating))
		field("Notes", p.Notes)
	} else {
		field("Status", "Want to visit")
	}
	field("Website", p.Website)
	if p.IsPermanentlyClosed() {
		field("Hours", "Permanently closed")
	} else if len(p.OpeningHours) > 0 {
		field("Today", util.FormatPeriods(p.OpeningHours[now.Weekday().String()]))
		if model.IsOpenAt(p.OpeningHours, now) {
			field("Open now", "yes")
		} else {
			field("Open now", "no")
		}
	}
	field("Added", util.FormatDate(p.CreatedAt))
	if p.UpdatedAt != nil {
		field("Updated", util.FormatDate(p.UpdatedAt))
	}
	field("Google Maps", p.MapsURL())
	tw.Flush()
}
