package marketapi

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/domino14/marketmaker/pkg/lmsr"
)

// SqliteStore persists LMSR markets in SQLite and executes trades against
// them. Each mutating operation runs inside an exclusive transaction, which
// supplies the per-market mutual exclusion the engine itself does not.
type SqliteStore struct {
	db *sql.DB
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

func NewSqliteStore(dbName string) (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", dbName+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) dbid(ctx context.Context, tableName, otheridName, otherid string) (int64, error) {
	var dbid int64

	query := fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", tableName, otheridName)

	err := s.db.QueryRowContext(ctx, query, otherid).Scan(&dbid)
	if err != nil {
		return 0, err
	}
	return dbid, nil
}

// querier is satisfied by both *sql.DB and *sql.Conn, so engine loading works
// inside and outside an exclusive transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// engineState is a market revived from its stored rows.
type engineState struct {
	marketID   int64
	isOpen     bool
	set        *lmsr.Set[string]
	outcomeIDs []int64
	engine     *lmsr.Market[string]
}

func (s *SqliteStore) loadEngine(ctx context.Context, q querier, marketUUID string) (*engineState, error) {
	var (
		marketID     int64
		liquidity    float64
		marketVolume float64
		resolved     sql.NullString
		isOpen       bool
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, liquidity, market_volume, resolved_outcome, is_open
		FROM markets
		WHERE uuid = ?`, marketUUID).Scan(&marketID, &liquidity, &marketVolume, &resolved, &isOpen)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, tag, shares
		FROM outcomes
		WHERE market_id = ?
		ORDER BY idx`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []string{}
	outcomeIDs := []int64{}
	shares := []uint64{}
	for rows.Next() {
		var (
			id    int64
			tag   string
			count uint64
		)
		if err := rows.Scan(&id, &tag, &count); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
		outcomeIDs = append(outcomeIDs, id)
		shares = append(shares, count)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	set, err := lmsr.NewSet(tags...)
	if err != nil {
		return nil, err
	}
	snap := lmsr.Snapshot[string]{
		Shares:       shares,
		Liquidity:    liquidity,
		MarketVolume: marketVolume,
	}
	if resolved.Valid {
		winner := resolved.String
		snap.Resolved = &winner
	}
	engine, err := lmsr.FromSnapshot(set, snap)
	if err != nil {
		return nil, err
	}
	return &engineState{
		marketID:   marketID,
		isOpen:     isOpen,
		set:        set,
		outcomeIDs: outcomeIDs,
		engine:     engine,
	}, nil
}

// CreateMarket creates a closed market over the given outcomes with the given
// liquidity constant, and returns its id. The outcome list is validated the
// same way the engine validates it (at least two unique tags); initial prices
// are the uniform 100/N cents.
func (s *SqliteStore) CreateMarket(ctx context.Context, description string,
	liquidity float64, outcomeTags []string) (string, error) {

	set, err := lmsr.NewSet(outcomeTags...)
	if err != nil {
		return "", err
	}
	engine, err := lmsr.NewMarket(set, liquidity)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	uuid := shortuuid.New()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO markets (uuid, description, liquidity, market_volume, date_created)
		VALUES(?, ?, ?, 0, ?)`,
		uuid, description, liquidity, now())
	if err != nil {
		return "", err
	}
	marketID, err := res.LastInsertId()
	if err != nil {
		return "", err
	}
	for i, tag := range set.Outcomes() {
		price, err := engine.Price(tag)
		if err != nil {
			return "", err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes (market_id, idx, tag, shares, last_price)
			VALUES(?, ?, ?, 0, ?)`,
			marketID, i, tag, 100*price)
		if err != nil {
			return "", err
		}
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	log.Info().Str("market", uuid).Float64("liquidity", liquidity).
		Int("outcomes", set.Len()).Msg("created-market")
	return uuid, nil
}

// OpenMarket opens a market for trading. Resolved markets stay closed.
func (s *SqliteStore) OpenMarket(ctx context.Context, marketUUID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE markets
		SET is_open = 1
		WHERE uuid = ? AND resolved_outcome IS NULL`, marketUUID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("market not found, or already resolved")
	}
	return nil
}

func scanMarket(rows interface{ Scan(...any) error }) (*Market, error) {
	market := &Market{}
	var resolved, dateClosed sql.NullString
	err := rows.Scan(&market.ID, &market.Description, &market.Liquidity,
		&market.MarketVolume, &resolved, &market.IsOpen,
		&market.DateCreated, &dateClosed)
	if err != nil {
		return nil, err
	}
	market.ResolvedOutcome = resolved.String
	market.DateClosed = dateClosed.String
	return market, nil
}

const marketColumns = `uuid, description, liquidity, market_volume,
	resolved_outcome, is_open, date_created, date_closed`

func (s *SqliteStore) GetMarket(ctx context.Context, marketUUID string) (*Market, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE uuid = ?`, marketUUID)
	return scanMarket(row)
}

func (s *SqliteStore) GetOpenMarkets(ctx context.Context) ([]*Market, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+marketColumns+`
		FROM markets
		WHERE is_open = 1`)
	if err != nil {
		return nil, err
	}

	markets := []*Market{}
	defer rows.Close()

	for rows.Next() {
		market, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, market)
	}
	return markets, rows.Err()
}

// GetOutcomes returns a market's outcomes in index order.
func (s *SqliteStore) GetOutcomes(ctx context.Context, marketUUID string) ([]*Outcome, error) {
	marketID, err := s.dbid(ctx, "markets", "uuid", marketUUID)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, idx, shares, last_price
		FROM outcomes
		WHERE market_id = ?
		ORDER BY idx`, marketID)
	if err != nil {
		return nil, err
	}

	outcomes := []*Outcome{}
	defer rows.Close()
	for rows.Next() {
		outcome := &Outcome{}
		err = rows.Scan(&outcome.Tag, &outcome.Index, &outcome.Shares, &outcome.LastPrice)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func (s *SqliteStore) GetOrderBook(ctx context.Context, marketUUID string, outcomeTag string,
	sinceDate time.Time, limit int) ([]*Order, error) {

	wheres := []string{}
	wheresVars := []any{}

	if marketUUID != "" {
		dbid, err := s.dbid(ctx, "markets", "uuid", marketUUID)
		if err != nil {
			return nil, err
		}
		wheres = append(wheres, `orders.market_id = ?`)
		wheresVars = append(wheresVars, dbid)
	}

	if outcomeTag != "" {
		wheres = append(wheres, `outcomes.tag = ?`)
		wheresVars = append(wheresVars, outcomeTag)
	}

	wheres = append(wheres, `orders.date_created >= ?`)
	wheresVars = append(wheresVars, sinceDate.Format(time.RFC3339))

	whereRendered := "WHERE " + strings.Join(wheres, " AND ")
	limitRendered := ""
	if limit > 0 {
		limitRendered = fmt.Sprintf("LIMIT %d", limit)
	}
	fullQuery := fmt.Sprintf(`
		SELECT orders.uuid, markets.uuid, outcomes.tag,
		side, amount, cost, orders.date_created
		FROM orders
		JOIN outcomes
		ON orders.outcome_id = outcomes.id
		JOIN markets
		ON orders.market_id = markets.id
		%s
		ORDER BY orders.date_created
		%s
	`, whereRendered, limitRendered)
	log.Debug().Str("fullQuery", fullQuery).Str("storeMethod", "GetOrderBook").Msg("executing-query")
	rows, err := s.db.QueryContext(ctx, fullQuery, wheresVars...)
	if err != nil {
		return nil, err
	}
	orders := []*Order{}
	defer rows.Close()
	for rows.Next() {
		order := &Order{}
		err = rows.Scan(&order.ID, &order.MarketID, &order.OutcomeTag,
			&order.Side, &order.Amount, &order.Cost, &order.DateCreated)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// ExecuteTrade buys (or, when buy is false, sells) amount shares of the given
// outcome and returns the cost charged to (or proceeds owed to) the trader.
// The whole trade — engine transition, share and price updates, order-book
// entry, volume update — commits atomically inside an exclusive transaction.
// Engine rejections (lmsr.ErrResolved, lmsr.ErrInsufficientShares,
// lmsr.ErrNegativeMarketCapitalization) are returned unwrapped.
func (s *SqliteStore) ExecuteTrade(ctx context.Context, marketUUID, outcomeTag string,
	amount uint64, buy bool) (float64, error) {

	if amount == 0 {
		return 0, errors.New("amount must be positive")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE TRANSACTION;"); err != nil {
		return 0, err
	}
	defer conn.ExecContext(ctx, "ROLLBACK;")

	state, err := s.loadEngine(ctx, conn, marketUUID)
	if err != nil {
		return 0, err
	}
	if !state.set.Contains(outcomeTag) {
		return 0, fmt.Errorf("outcome %q is not in market %s", outcomeTag, marketUUID)
	}
	if _, resolved := state.engine.Resolved(); !resolved && !state.isOpen {
		return 0, errors.New("market is not open for trading")
	}

	var (
		cost float64
		side string
	)
	if buy {
		cost, err = state.engine.Buy(outcomeTag, amount)
		side = "buy"
	} else {
		cost, err = state.engine.Sell(outcomeTag, amount)
		side = "sell"
	}
	if err != nil {
		return 0, err
	}

	_, err = conn.ExecContext(ctx, `
		UPDATE markets
		SET market_volume = ?
		WHERE id = ?`, state.engine.Volume(), state.marketID)
	if err != nil {
		return 0, err
	}

	// Every outcome's price moves on a trade, so refresh them all.
	shares := state.engine.Shares()
	for i, tag := range state.set.Outcomes() {
		price, err := state.engine.Price(tag)
		if err != nil {
			return 0, err
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE outcomes
			SET shares = ?, last_price = ?
			WHERE id = ?`, shares[i], 100*price, state.outcomeIDs[i])
		if err != nil {
			return 0, err
		}
	}

	outcomeID := state.outcomeIDs[state.set.IndexOf(outcomeTag)]
	_, err = conn.ExecContext(ctx, `
		INSERT INTO orders (uuid, market_id, outcome_id, side, amount, cost, date_created)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		shortuuid.New(), state.marketID, outcomeID, side, amount, cost, now())
	if err != nil {
		return 0, err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT;"); err != nil {
		return 0, err
	}
	log.Debug().Str("market", marketUUID).Str("outcome", outcomeTag).
		Str("side", side).Uint64("amount", amount).Float64("cost", cost).
		Msg("executed-trade")
	return cost, nil
}

// Price returns the engine's current price for an outcome, in (0, 1).
func (s *SqliteStore) Price(ctx context.Context, marketUUID, outcomeTag string) (float64, error) {
	state, err := s.loadEngine(ctx, s.db, marketUUID)
	if err != nil {
		return 0, err
	}
	if !state.set.Contains(outcomeTag) {
		return 0, fmt.Errorf("outcome %q is not in market %s", outcomeTag, marketUUID)
	}
	return state.engine.Price(outcomeTag)
}

// ResolveMarket permanently fixes the market's winning outcome and closes it
// to further trading.
func (s *SqliteStore) ResolveMarket(ctx context.Context, marketUUID, winnerTag string) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN EXCLUSIVE TRANSACTION;"); err != nil {
		return err
	}
	defer conn.ExecContext(ctx, "ROLLBACK;")

	state, err := s.loadEngine(ctx, conn, marketUUID)
	if err != nil {
		return err
	}
	if !state.set.Contains(winnerTag) {
		return fmt.Errorf("outcome %q is not in market %s", winnerTag, marketUUID)
	}
	if err := state.engine.Resolve(winnerTag); err != nil {
		return err
	}

	_, err = conn.ExecContext(ctx, `
		UPDATE markets
		SET resolved_outcome = ?, is_open = 0, date_closed = ?
		WHERE id = ?`, winnerTag, now(), state.marketID)
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT;"); err != nil {
		return err
	}
	log.Info().Str("market", marketUUID).Str("winner", winnerTag).Msg("resolved-market")
	return nil
}

// PayoutPerShare returns the funds owed per share of the winning outcome. The
// store enforces the discipline the engine leaves to its callers: the market
// must be resolved and the queried outcome must be the winner.
func (s *SqliteStore) PayoutPerShare(ctx context.Context, marketUUID, outcomeTag string) (float64, error) {
	state, err := s.loadEngine(ctx, s.db, marketUUID)
	if err != nil {
		return 0, err
	}
	if !state.set.Contains(outcomeTag) {
		return 0, fmt.Errorf("outcome %q is not in market %s", outcomeTag, marketUUID)
	}
	winner, resolved := state.engine.Resolved()
	if !resolved {
		return 0, errors.New("market is not resolved")
	}
	if winner != outcomeTag {
		return 0, fmt.Errorf("outcome %q did not win this market", outcomeTag)
	}
	return state.engine.PayoutPerShare(outcomeTag)
}

// GetSnapshot returns the market's storable snapshot alongside its outcome
// tags.
func (s *SqliteStore) GetSnapshot(ctx context.Context, marketUUID string) (*MarketSnapshot, error) {
	state, err := s.loadEngine(ctx, s.db, marketUUID)
	if err != nil {
		return nil, err
	}
	return &MarketSnapshot{
		MarketID: marketUUID,
		Outcomes: state.set.Outcomes(),
		Record:   state.engine.Snapshot(),
	}, nil
}

func (s *SqliteStore) Close() error {
	return s.db.Close()
}
