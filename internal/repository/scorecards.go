package repository

import (
	"context"
	"fmt"
	"time"

	"runpool/ingestion/internal/models"
)

// ScorecardRepository assembles the shareable read model of one fantasy game
type ScorecardRepository struct {
	db    DBTX
	games *FantasyGameRepository
	loc   *time.Location
}

// ForToken builds the scorecard of the fantasy game holding token. Players
// without an account show their non-registered score.
func (r *ScorecardRepository) ForToken(ctx context.Context, token string) (*models.Scorecard, error) {
	game, err := r.games.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	players, err := r.players(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	teams, err := (&TeamRepository{db: r.db}).List(ctx)
	if err != nil {
		return nil, err
	}

	runTotals, err := (&RunTotalRepository{db: r.db}).ValuesByTeam(ctx, game.ID)
	if err != nil {
		return nil, err
	}

	played, err := (&ScoreFactRepository{db: r.db}).GamesPlayed(ctx, game.ID, game.WindowStart(r.loc))
	if err != nil {
		return nil, err
	}

	card := &models.Scorecard{
		Game:    game,
		Players: players,
		Teams:   make([]models.ScorecardTeam, 0, len(teams)),
	}
	for _, team := range teams {
		values := runTotals[team.ID]
		if values == nil {
			values = []int{}
		}
		card.Teams = append(card.Teams, models.ScorecardTeam{
			TeamID:      team.ID,
			TeamCode:    team.Code,
			RunTotals:   values,
			GamesPlayed: played[team.ID],
		})
	}

	return card, nil
}

func (r *ScorecardRepository) players(ctx context.Context, fantasyGameID int) ([]models.ScorecardPlayer, error) {
	query := `
		SELECT
			p.id,
			COALESCE(u.name, n.name, ''),
			p.user_id IS NOT NULL,
			p.team_id,
			t.code,
			CASE WHEN p.user_id IS NULL AND n.id IS NOT NULL THEN n.score ELSE p.score END
		FROM players p
		JOIN teams t ON t.id = p.team_id
		LEFT JOIN users u ON u.id = p.user_id
		LEFT JOIN non_registered_players n ON n.id = p.non_registered_player_id
		WHERE p.fantasy_game_id = $1
		ORDER BY p.id
	`

	rows, err := r.db.Query(ctx, query, fantasyGameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scorecard players: %w", err)
	}
	defer rows.Close()

	players := []models.ScorecardPlayer{}
	for rows.Next() {
		var p models.ScorecardPlayer
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Registered, &p.TeamID, &p.TeamCode, &p.Score); err != nil {
			return nil, fmt.Errorf("failed to scan scorecard player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scorecard players: %w", err)
	}

	return players, nil
}
