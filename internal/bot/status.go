package bot

import (
	"context"
	"fmt"
	"strings"
)

// formatUserStatus renders a user's accumulated points, optionally filtered
// to groups whose name matches filter (case-insensitive exact match).
func (b *Bot) formatUserStatus(ctx context.Context, userID int64, filter string) (string, error) {
	entries, err := b.store.UserPoints(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user points: %w", err)
	}

	if filter != "" {
		var bld strings.Builder
		found := false
		for _, e := range entries {
			if !strings.EqualFold(e.GroupName, filter) {
				continue
			}
			if !found {
				bld.WriteString("📊 Your Points\n\n")
				found = true
			}
			bld.WriteString(fmt.Sprintf("• %s: %.1f\n", e.GroupName, e.Points))
		}
		if !found {
			return fmt.Sprintf("You have no points in a group called %q.", filter), nil
		}
		return strings.TrimRight(bld.String(), "\n"), nil
	}

	if len(entries) == 0 {
		return "You haven't earned any points yet. Start chatting in a group I'm in!", nil
	}

	var bld strings.Builder
	bld.WriteString("📊 Your Points\n\n")
	total := 0.0
	for _, e := range entries {
		bld.WriteString(fmt.Sprintf("• %s: %.1f\n", e.GroupName, e.Points))
		total += e.Points
	}
	bld.WriteString(fmt.Sprintf("\nTotal: %.1f", total))
	return bld.String(), nil
}
