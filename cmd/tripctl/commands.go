package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/billbatista/acasinha-trip/app"
	"github.com/billbatista/acasinha-trip/config"
	"github.com/billbatista/acasinha-trip/ledger"
	"github.com/billbatista/acasinha-trip/raffle"
	"github.com/google/subcommands"
)

// errUsage marks bad arguments, reported as a usage error.
var errUsage = errors.New("usage")

// runner is the body of a command once the trip services are up.
type runner interface {
	run(ctx context.Context, a *app.App, args []string, out io.Writer) error
}

func Register(c *subcommands.Commander) {
	c.Register(&balancesCmd{}, "wallet")
	c.Register(&setRateCmd{}, "wallet")
	c.Register(&setFundCmd{}, "wallet")
	c.Register(&publishCmd{}, "announcement")
	c.Register(&cancelAnnouncementCmd{}, "announcement")
	c.Register(&resetPinCmd{}, "members")
	c.Register(&unlockPhotoCmd{}, "members")
	c.Register(&shuffleCarsCmd{}, "raffle")
	c.Register(&drawBedsCmd{}, "raffle")
	c.Register(&eventsCmd{}, "audit")
}

// execute loads the configuration, opens the store and hands over to r.
func execute(ctx context.Context, f *flag.FlagSet, r runner) subcommands.ExitStatus {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.StoreDriver == config.DriverMemory {
		fmt.Fprintln(os.Stderr, "Error: tripctl needs a persistent store, set STORE_DRIVER to sqlite or postgres")
		return subcommands.ExitUsageError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	a, err := app.New(ctx, cfg, app.WithActor("tripctl"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening trip: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if err := r.run(ctx, a, f.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return subcommands.ExitUsageError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

type balancesCmd struct{}

func (*balancesCmd) Name() string     { return "balances" }
func (*balancesCmd) Synopsis() string { return "print the shared wallet balances" }
func (*balancesCmd) Usage() string {
	return `tripctl balances

  Prints what each member is owed (positive) or owes (negative), in yen and
  Taiwan dollars at the current rate.
`
}
func (*balancesCmd) SetFlags(*flag.FlagSet) {}
func (c *balancesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*balancesCmd) run(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	sum, err := a.Ledger.Summary(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, m := range a.Ledger.Members() {
		b := sum.Balances[m]
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m, ledger.Format(ledger.Round(b), ledger.JPY), ledger.Format(ledger.Convert(b, sum.Rate), ledger.TWD))
	}
	fmt.Fprintf(tw, "total\t%s\t%s\n", ledger.Format(sum.Total, ledger.JPY), ledger.Format(sum.TotalTWD, ledger.TWD))
	fmt.Fprintf(tw, "rate\t%g\t\n", sum.Rate)
	return tw.Flush()
}

type setRateCmd struct{}

func (*setRateCmd) Name() string     { return "set-rate" }
func (*setRateCmd) Synopsis() string { return "set the JPY to TWD exchange rate" }
func (*setRateCmd) Usage() string {
	return `tripctl set-rate <rate>

  Sets the rate used to show yen amounts in Taiwan dollars, e.g. 0.21.
`
}
func (*setRateCmd) SetFlags(*flag.FlagSet) {}
func (c *setRateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*setRateCmd) run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("set-rate takes exactly one rate")
	}
	rate, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return usageError("invalid rate %q", args[0])
	}
	if err := a.Ledger.SetRate(ctx, rate); err != nil {
		return err
	}
	fmt.Fprintf(out, "rate set to %g\n", rate)
	return nil
}

type setFundCmd struct {
	jpy float64
	twd float64
}

func (*setFundCmd) Name() string     { return "set-fund" }
func (*setFundCmd) Synopsis() string { return "overwrite the team fund balances" }
func (*setFundCmd) Usage() string {
	return `tripctl set-fund -jpy <amount> -twd <amount>

  Overwrites both team fund balances. Recorded fund expenses are kept.
`
}
func (c *setFundCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.jpy, "jpy", 0, "yen balance")
	f.Float64Var(&c.twd, "twd", 0, "Taiwan dollar balance")
}
func (c *setFundCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (c *setFundCmd) run(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if err := a.Ledger.SetFundBalance(ctx, c.jpy, c.twd); err != nil {
		return err
	}
	fmt.Fprintf(out, "fund set to %s / %s\n", ledger.Format(c.jpy, ledger.JPY), ledger.Format(c.twd, ledger.TWD))
	return nil
}

type publishCmd struct{}

func (*publishCmd) Name() string     { return "publish" }
func (*publishCmd) Synopsis() string { return "publish an announcement" }
func (*publishCmd) Usage() string {
	return `tripctl publish <text>

  Replaces the active announcement. Every member sees it on their next visit.
`
}
func (*publishCmd) SetFlags(*flag.FlagSet) {}
func (c *publishCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*publishCmd) run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	ann, err := a.Board.Publish(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "published %s\n", ann.ID)
	return nil
}

type cancelAnnouncementCmd struct{}

func (*cancelAnnouncementCmd) Name() string     { return "cancel-announcement" }
func (*cancelAnnouncementCmd) Synopsis() string { return "take down the active announcement" }
func (*cancelAnnouncementCmd) Usage() string {
	return `tripctl cancel-announcement

  Clears the active announcement. The history is kept.
`
}
func (*cancelAnnouncementCmd) SetFlags(*flag.FlagSet) {}
func (c *cancelAnnouncementCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*cancelAnnouncementCmd) run(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	if err := a.Board.Cancel(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "announcement cancelled")
	return nil
}

type resetPinCmd struct{}

func (*resetPinCmd) Name() string     { return "reset-pin" }
func (*resetPinCmd) Synopsis() string { return "remove a member's PIN" }
func (*resetPinCmd) Usage() string {
	return `tripctl reset-pin <member>

  Removes the member's PIN everywhere it is stored and unlocks their profile.
`
}
func (*resetPinCmd) SetFlags(*flag.FlagSet) {}
func (c *resetPinCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*resetPinCmd) run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("reset-pin takes exactly one member")
	}
	if err := a.Members.ResetPin(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "pin reset for %s\n", args[0])
	return nil
}

type unlockPhotoCmd struct{}

func (*unlockPhotoCmd) Name() string     { return "unlock-photo" }
func (*unlockPhotoCmd) Synopsis() string { return "let a member change their photo again" }
func (*unlockPhotoCmd) Usage() string {
	return `tripctl unlock-photo <member>
`
}
func (*unlockPhotoCmd) SetFlags(*flag.FlagSet) {}
func (c *unlockPhotoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*unlockPhotoCmd) run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("unlock-photo takes exactly one member")
	}
	if err := a.Members.UnlockPhoto(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "photo unlocked for %s\n", args[0])
	return nil
}

type shuffleCarsCmd struct{}

func (*shuffleCarsCmd) Name() string     { return "shuffle-cars" }
func (*shuffleCarsCmd) Synopsis() string { return "draw who rides in which car" }
func (*shuffleCarsCmd) Usage() string {
	return `tripctl shuffle-cars

  Draws the car seating, keeping pinned members in their car, and saves it.
`
}
func (*shuffleCarsCmd) SetFlags(*flag.FlagSet) {}
func (c *shuffleCarsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*shuffleCarsCmd) run(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	res, err := a.Raffle.ShuffleCars(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "car4: %s\n", strings.Join(res.Car4, ", "))
	fmt.Fprintf(out, "car6: %s\n", strings.Join(res.Car6, ", "))
	return nil
}

type drawBedsCmd struct{}

func (*drawBedsCmd) Name() string     { return "draw-beds" }
func (*drawBedsCmd) Synopsis() string { return "draw who sleeps in which bed" }
func (*drawBedsCmd) Usage() string {
	return `tripctl draw-beds

  Draws the beds, keeping pinned members in place, and saves the result.
`
}
func (*drawBedsCmd) SetFlags(*flag.FlagSet) {}
func (c *drawBedsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (*drawBedsCmd) run(ctx context.Context, a *app.App, _ []string, out io.Writer) error {
	beds, err := a.Raffle.DrawBeds(ctx)
	if err != nil {
		return err
	}
	slices.SortFunc(beds, func(x, y raffle.BedAssignment) int { return strings.Compare(x.Bed, y.Bed) })
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, b := range beds {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", b.Bed, b.Member, b.Title)
	}
	return tw.Flush()
}

type eventsCmd struct {
	limit int
}

func (*eventsCmd) Name() string     { return "events" }
func (*eventsCmd) Synopsis() string { return "list audit events of one type" }
func (*eventsCmd) Usage() string {
	return `tripctl events [-n <limit>] <type>

  Lists recorded events of the given type, e.g. expense.added, oldest first.
`
}
func (c *eventsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.limit, "n", 0, "only show the last n events")
}
func (c *eventsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	return execute(ctx, f, c)
}

func (c *eventsCmd) run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usageError("events takes exactly one event type")
	}
	events, err := a.Events.GetByType(ctx, args[0])
	if err != nil {
		return err
	}
	if c.limit > 0 && len(events) > c.limit {
		events = events[len(events)-c.limit:]
	}
	for _, e := range events {
		actor := e.Metadata["actor"]
		if actor == "" {
			actor = "-"
		}
		fmt.Fprintf(out, "%s  %s  %s  %v\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.ID, actor, e.Data)
	}
	return nil
}
