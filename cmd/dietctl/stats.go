package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/klipach/dietapp/apperr"
	"github.com/klipach/dietapp/contract"
	"github.com/klipach/dietapp/eventbus"
	"github.com/klipach/dietapp/viewmodel"
	"github.com/spf13/cobra"
)

var (
	statsRefresh bool
	statsWatch   time.Duration
	statsTimes   int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show application statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(ctx context.Context, s *session) error {
			if statsWatch > 0 {
				return watchStatistics(ctx, s, statsWatch, statsTimes)
			}
			refresh := false
			v := newView(s, func(ctx context.Context) (*contract.AppStatistics, error) {
				return s.client.Statistics(ctx, refresh)
			})
			defer v.close()

			st, err := v.load(ctx)
			if err == nil && statsRefresh {
				refresh = true
				s.bus.Publish(ctx, eventbus.Event{Kind: eventbus.Refresh})
				st, err = v.current(ctx)
			}
			if err != nil {
				return err
			}
			printStatistics(s, st)
			return nil
		})
	},
}

// watchStatistics reloads the statistics every interval until ctx is done or times loads
// happened. Connectivity changes are reported and trigger an immediate reload.
func watchStatistics(ctx context.Context, s *session, every time.Duration, times int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watcher.Run(ctx)
	online, stopOnline := s.watcher.Changes(4)
	defer stopOnline()

	vm := viewmodel.New[*contract.AppStatistics](s.base)
	states, stopStates := vm.States(4)
	defer stopStates()
	fetch := func(ctx context.Context) (*contract.AppStatistics, error) {
		return s.client.Statistics(ctx, false)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for loads := 1; ; loads++ {
		_ = vm.Run(ctx, fetch)
		printStates(s, states)
		if s.drainAlerts(ctx) {
			return errors.New(vm.State().Message)
		}
		if times > 0 && loads >= times {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case up := <-online:
			if up {
				fmt.Fprintln(s.out, "Połączenie przywrócone")
			} else {
				fmt.Fprintln(s.out, apperr.Network.DisplayText())
			}
		case <-ticker.C:
		}
	}
}

// printStates renders the transitions of one load.
func printStates(s *session, states <-chan viewmodel.State[*contract.AppStatistics]) {
	for {
		select {
		case st := <-states:
			switch st.Kind {
			case viewmodel.Success:
				printStatistics(s, st.Data)
				fmt.Fprintln(s.out)
			case viewmodel.Error:
				fmt.Fprintf(s.out, "Błąd: %s\n", st.Message)
			}
		default:
			return
		}
	}
}

func printStatistics(s *session, st *contract.AppStatistics) {
	fmt.Fprintf(s.out, "Users\t%d\n", st.TotalUsers)
	fmt.Fprintf(s.out, "Active users\t%d\n", st.ActiveUsers)
	fmt.Fprintf(s.out, "Admins\t%d\n", st.AdminUsers)
	genders := make([]string, 0, len(st.UsersByGender))
	for g := range st.UsersByGender {
		genders = append(genders, g)
	}
	sort.Strings(genders)
	for _, g := range genders {
		fmt.Fprintf(s.out, "  %s\t%d\n", g, st.UsersByGender[g])
	}
	fmt.Fprintf(s.out, "Diets\t%d\n", st.TotalDiets)
	fmt.Fprintf(s.out, "Recipes\t%d\n", st.TotalRecipes)
	fmt.Fprintf(s.out, "Pending invitations\t%d\n", st.PendingUsers)
	fmt.Fprintf(s.out, "Shopping lists\t%d\n", st.TotalShoppingLists)
	fmt.Fprintf(s.out, "Generated at\t%s\n", formatTime(st.GeneratedAt))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func init() {
	statsCmd.Flags().BoolVar(&statsRefresh, "refresh", false, "Recompute statistics before showing them")
	statsCmd.Flags().DurationVar(&statsWatch, "watch", 0, "Reload statistics at this interval until interrupted")
	statsCmd.Flags().IntVar(&statsTimes, "times", 0, "With --watch, stop after this many loads")
	rootCmd.AddCommand(statsCmd)
}
