package bot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mdiboard/internal/board"
	"mdiboard/internal/common"
)

// DatabaseBot persists board placements and sign-up lists per guild
type DatabaseBot struct {
	common.Database
}

func CreateDatabaseBot(dbFilename string) (*DatabaseBot, error) {
	database, err := common.OpenDatabase(dbFilename)
	if err != nil {
		return nil, err
	}
	return &DatabaseBot{database}, nil
}

func (db *DatabaseBot) Placement(ctx context.Context, guild string, kind board.Kind) (board.Placement, bool, error) {
	var placement board.Placement
	err := db.DB.QueryRowContext(ctx,
		`SELECT channel_id, message_id FROM guild_boards WHERE guild_id = ? AND board = ?`,
		guild, string(kind)).Scan(&placement.ChannelID, &placement.MessageID)
	if errors.Is(err, sql.ErrNoRows) {
		return board.Placement{}, false, nil
	}
	if err != nil {
		return board.Placement{}, false, fmt.Errorf("query placement: %w", err)
	}
	return placement, true, nil
}

func (db *DatabaseBot) SetPlacement(ctx context.Context, guild string, kind board.Kind, placement board.Placement) error {
	if placement.ChannelID == "" || placement.MessageID == "" {
		return errors.New("placement needs both channel and message")
	}
	_, err := db.DB.ExecContext(ctx,
		`INSERT INTO guild_boards (guild_id, board, channel_id, message_id, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (guild_id, board) DO UPDATE SET
		   channel_id = excluded.channel_id,
		   message_id = excluded.message_id,
		   updated_at = excluded.updated_at`,
		guild, string(kind), placement.ChannelID, placement.MessageID)
	if err != nil {
		return fmt.Errorf("store placement: %w", err)
	}
	return nil
}

func (db *DatabaseBot) ClearPlacement(ctx context.Context, guild string, kind board.Kind) error {
	if _, err := db.DB.ExecContext(ctx, `DELETE FROM guild_boards WHERE guild_id = ? AND board = ?`, guild, string(kind)); err != nil {
		return fmt.Errorf("clear placement: %w", err)
	}
	return nil
}

func (db *DatabaseBot) Guilds(ctx context.Context, kind board.Kind) ([]string, error) {
	rows, err := db.DB.QueryContext(ctx, `SELECT guild_id FROM guild_boards WHERE board = ? ORDER BY guild_id`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query guilds: %w", err)
	}
	defer rows.Close()

	var guilds []string
	for rows.Next() {
		var guild string
		if err := rows.Scan(&guild); err != nil {
			return nil, fmt.Errorf("scan guild: %w", err)
		}
		guilds = append(guilds, guild)
	}
	return guilds, rows.Err()
}

// Signups returns the sign-up list of the guild in the order it was given
func (db *DatabaseBot) Signups(ctx context.Context, guild string) ([]string, error) {
	rows, err := db.DB.QueryContext(ctx, `SELECT player FROM guild_signups WHERE guild_id = ? ORDER BY position`, guild)
	if err != nil {
		return nil, fmt.Errorf("query signups: %w", err)
	}
	defer rows.Close()

	var players []string
	for rows.Next() {
		var player string
		if err := rows.Scan(&player); err != nil {
			return nil, fmt.Errorf("scan signup: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

// SetSignups replaces the whole sign-up list of the guild
func (db *DatabaseBot) SetSignups(ctx context.Context, guild string, players []string) error {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM guild_signups WHERE guild_id = ?`, guild); err != nil {
		return fmt.Errorf("clear signups: %w", err)
	}
	for position, player := range players {
		if _, err := tx.ExecContext(ctx, `INSERT INTO guild_signups (guild_id, position, player) VALUES (?, ?, ?)`, guild, position, player); err != nil {
			return fmt.Errorf("insert signup %s: %w", player, err)
		}
	}
	return tx.Commit()
}
