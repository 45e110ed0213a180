// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/Maithiliii/Flairies/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при попытке создать пользователя с уже существующим логином.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrListingNotFound возвращается, если объявление не найдено.
	ErrListingNotFound = errors.New("listing not found")
	// ErrListingNotAvailable возвращается при попытке купить неактивное объявление.
	ErrListingNotAvailable = errors.New("listing is not available")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrSellerNotFound возвращается, если профиль продавца не найден.
	ErrSellerNotFound = errors.New("seller profile not found")
	// ErrOrderNotEligible возвращается при попытке выплаты по заказу,
	// который ещё не оплачен или не доставлен.
	ErrOrderNotEligible = errors.New("order is not eligible for payout")
	// ErrPayoutInProgress возвращается, если выплата по заказу уже начата
	// или завершена другой попыткой.
	ErrPayoutInProgress = errors.New("payout already in progress or completed")
)

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет транзакцию при serialization failure или deadlock.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(time.Second))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
		}

		return err
	})
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя и пустой профиль продавца для него.
func (r *PostgresRepository) CreateUser(ctx context.Context, login string, passwordHash []byte) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id`,
		login, passwordHash,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: %s", ErrUserExists, login)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO seller_profiles (user_id) VALUES ($1)`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("create seller profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return id, nil
}

// GetUserByLogin возвращает пользователя по логину.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, login string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, login, password_hash, created_at FROM users WHERE login = $1`,
		login,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// CreateListing сохраняет новое объявление и возвращает его идентификатор.
func (r *PostgresRepository) CreateListing(ctx context.Context, l *model.Listing) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO listings (seller_id, title, description, listing_type, price, rent_price, allowed_methods, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING id`,
		l.SellerID, l.Title, l.Description, string(l.ListingType), l.Price.String(), l.RentPrice.String(), string(l.AllowedMethods),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert listing: %w", err)
	}
	return id, nil
}

// GetListing возвращает объявление по идентификатору.
func (r *PostgresRepository) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, seller_id, title, description, listing_type, price, rent_price, allowed_methods, is_active, created_at
		 FROM listings
		 WHERE id = $1`,
		id,
	)

	var l model.Listing
	var listingType, allowedMethods string
	err := row.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &listingType, &l.Price, &l.RentPrice, &allowedMethods, &l.IsActive, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	l.ListingType = model.ListingType(listingType)
	l.AllowedMethods = model.AllowedMethods(allowedMethods)
	return &l, nil
}

// ListActiveListings возвращает активные объявления, новые первыми.
func (r *PostgresRepository) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, seller_id, title, description, listing_type, price, rent_price, allowed_methods, is_active, created_at
		 FROM listings
		 WHERE is_active = TRUE
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	defer rows.Close()

	var res []model.Listing
	for rows.Next() {
		var l model.Listing
		var listingType, allowedMethods string
		if err := rows.Scan(&l.ID, &l.SellerID, &l.Title, &l.Description, &listingType, &l.Price, &l.RentPrice, &allowedMethods, &l.IsActive, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		l.ListingType = model.ListingType(listingType)
		l.AllowedMethods = model.AllowedMethods(allowedMethods)
		res = append(res, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// DeactivateListing снимает объявление с публикации. Повторный вызов
// для уже неактивного объявления — no-op.
func (r *PostgresRepository) DeactivateListing(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE listings SET is_active = FALSE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deactivate listing: %w", err)
	}
	return nil
}

// CreateOrder сохраняет новый заказ одной транзакцией: проверка активности
// объявления, вставка заказа и, для наложенного платежа, немедленное снятие
// объявления с публикации.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var isActive bool
		err = tx.QueryRow(ctx,
			`SELECT is_active FROM listings WHERE id = $1 FOR UPDATE`,
			o.ListingID,
		).Scan(&isActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrListingNotFound
			}
			return fmt.Errorf("lock listing: %w", err)
		}

		if !isActive {
			return ErrListingNotAvailable
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO orders (order_id, buyer_id, seller_id, listing_id,
			                     item_price, commission_rate, platform_commission, seller_earnings,
			                     payment_method, payment_status, fulfillment_status, payout_status,
			                     gateway_order_id, buyer_name, buyer_phone, delivery_address)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			o.OrderID, o.BuyerID, o.SellerID, o.ListingID,
			o.ItemPrice.String(), o.CommissionRate.String(), o.PlatformCommission.String(), o.SellerEarnings.String(),
			string(o.PaymentMethod), string(o.PaymentStatus), string(o.FulfillmentStatus), string(o.PayoutStatus),
			o.GatewayOrderID, o.BuyerName, o.BuyerPhone, o.DeliveryAddress,
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		// Для наложенного платежа нет подтверждения шлюза, объявление
		// снимается сразу при создании заказа.
		if o.PaymentMethod == model.PaymentMethodCOD {
			_, err = tx.Exec(ctx,
				`UPDATE listings SET is_active = FALSE WHERE id = $1`,
				o.ListingID,
			)
			if err != nil {
				return fmt.Errorf("deactivate listing: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

const orderColumns = `order_id, buyer_id, seller_id, listing_id,
	item_price, commission_rate, platform_commission, seller_earnings,
	payment_method, payment_status, fulfillment_status, payout_status,
	gateway_order_id, gateway_payment_id, gateway_signature, payout_ref,
	buyer_name, buyer_phone, delivery_address,
	created_at, paid_at, delivered_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var method, payment, fulfillment, payout string

	err := row.Scan(&o.OrderID, &o.BuyerID, &o.SellerID, &o.ListingID,
		&o.ItemPrice, &o.CommissionRate, &o.PlatformCommission, &o.SellerEarnings,
		&method, &payment, &fulfillment, &payout,
		&o.GatewayOrderID, &o.GatewayPaymentID, &o.GatewaySignature, &o.PayoutRef,
		&o.BuyerName, &o.BuyerPhone, &o.DeliveryAddress,
		&o.CreatedAt, &o.PaidAt, &o.DeliveredAt)
	if err != nil {
		return nil, err
	}

	o.PaymentMethod = model.PaymentMethod(method)
	o.PaymentStatus = model.PaymentStatus(payment)
	o.FulfillmentStatus = model.FulfillmentStatus(fulfillment)
	o.PayoutStatus = model.PayoutStatus(payout)
	return &o, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1`,
		orderID,
	)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	return o, nil
}

func (r *PostgresRepository) selectOrders(ctx context.Context, query string, args ...any) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetOrdersByBuyer возвращает покупки пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersByBuyer(ctx context.Context, buyerID int64) ([]model.Order, error) {
	return r.selectOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE buyer_id = $1 ORDER BY created_at DESC`,
		buyerID,
	)
}

// GetOrdersBySeller возвращает продажи пользователя, новые первыми.
func (r *PostgresRepository) GetOrdersBySeller(ctx context.Context, sellerID int64) ([]model.Order, error) {
	return r.selectOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE seller_id = $1 ORDER BY created_at DESC`,
		sellerID,
	)
}

// ConfirmPayment фиксирует успешную оплату заказа одной транзакцией:
// перевод оплаты в paid, логистики в confirmed, снятие объявления и
// начисление заработка продавцу. Повторный вызов для уже оплаченного
// заказа — no-op, возвращает applied=false.
func (r *PostgresRepository) ConfirmPayment(ctx context.Context, orderID, gatewayPaymentID, signature string) (bool, error) {
	var applied bool

	err := r.withRetry(ctx, func() error {
		applied = false

		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var listingID, sellerID int64
		var earnings decimal.Decimal
		err = tx.QueryRow(ctx,
			`UPDATE orders
			 SET payment_status = $2, fulfillment_status = $3,
			     gateway_payment_id = $4, gateway_signature = $5, paid_at = now()
			 WHERE order_id = $1 AND payment_status = $6 AND fulfillment_status = $7
			 RETURNING listing_id, seller_id, seller_earnings`,
			orderID, string(model.PaymentPaid), string(model.FulfillmentConfirmed),
			gatewayPaymentID, signature,
			string(model.PaymentPending), string(model.FulfillmentPending),
		).Scan(&listingID, &sellerID, &earnings)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return r.classifyPaymentNoop(ctx, tx, orderID)
			}
			return fmt.Errorf("update order: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE listings SET is_active = FALSE WHERE id = $1`,
			listingID,
		)
		if err != nil {
			return fmt.Errorf("deactivate listing: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE seller_profiles
			 SET total_earnings = total_earnings + $2,
			     pending_payout = pending_payout + $2
			 WHERE user_id = $1`,
			sellerID, earnings.String(),
		)
		if err != nil {
			return fmt.Errorf("accrue earnings: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		applied = true
		return nil
	})

	return applied, err
}

// classifyPaymentNoop разбирает неуспешный условный UPDATE оплаты:
// повтор колбэка для оплаченного заказа — no-op, остальное — ошибка.
func (r *PostgresRepository) classifyPaymentNoop(ctx context.Context, tx pgx.Tx, orderID string) error {
	var status string
	err := tx.QueryRow(ctx,
		`SELECT payment_status FROM orders WHERE order_id = $1`,
		orderID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("select order status: %w", err)
	}

	if model.PaymentStatus(status) == model.PaymentPaid {
		return nil
	}

	return model.ErrInvalidTransition
}

// MarkPaymentFailed переводит оплату заказа в failed. Допустим только
// из pending.
func (r *PostgresRepository) MarkPaymentFailed(ctx context.Context, orderID string) error {
	return r.conditionalPaymentUpdate(ctx, orderID, model.PaymentPending, model.PaymentFailed)
}

// RefundPayment переводит оплату заказа в refunded. Допустим только из paid.
func (r *PostgresRepository) RefundPayment(ctx context.Context, orderID string) error {
	return r.conditionalPaymentUpdate(ctx, orderID, model.PaymentPaid, model.PaymentRefunded)
}

func (r *PostgresRepository) conditionalPaymentUpdate(ctx context.Context, orderID string, from, to model.PaymentStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $3 WHERE order_id = $1 AND payment_status = $2`,
		orderID, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`,
		orderID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("select order: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}

	return model.ErrInvalidTransition
}

// AdvanceFulfillment переводит логистический статус заказа по допустимому
// ребру. Недопустимый переход не изменяет ни одно поле.
func (r *PostgresRepository) AdvanceFulfillment(ctx context.Context, orderID string, to model.FulfillmentStatus) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var current string
		err = tx.QueryRow(ctx,
			`SELECT fulfillment_status FROM orders WHERE order_id = $1 FOR UPDATE`,
			orderID,
		).Scan(&current)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if err := model.ValidateFulfillmentTransition(model.FulfillmentStatus(current), to); err != nil {
			return err
		}

		if to == model.FulfillmentDelivered {
			_, err = tx.Exec(ctx,
				`UPDATE orders SET fulfillment_status = $2, delivered_at = now() WHERE order_id = $1`,
				orderID, string(to),
			)
		} else {
			_, err = tx.Exec(ctx,
				`UPDATE orders SET fulfillment_status = $2 WHERE order_id = $1`,
				orderID, string(to),
			)
		}
		if err != nil {
			return fmt.Errorf("update fulfillment status: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// BeginPayout атомарно захватывает заказ под выплату: условный перевод
// payout_status из pending в processing. Проигравшая параллельная попытка
// получает ErrPayoutInProgress и не делает внешних вызовов.
func (r *PostgresRepository) BeginPayout(ctx context.Context, orderID string) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders
		 SET payout_status = $2
		 WHERE order_id = $1
		   AND payment_status = $3
		   AND fulfillment_status = $4
		   AND payout_status = $5
		 RETURNING `+orderColumns,
		orderID, string(model.PayoutProcessing),
		string(model.PaymentPaid), string(model.FulfillmentDelivered), string(model.PayoutPending),
	)

	o, err := scanOrder(row)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("begin payout: %w", err)
	}

	var payoutStatus string
	err = r.pool.QueryRow(ctx,
		`SELECT payout_status FROM orders WHERE order_id = $1`,
		orderID,
	).Scan(&payoutStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("select payout status: %w", err)
	}

	switch model.PayoutStatus(payoutStatus) {
	case model.PayoutProcessing, model.PayoutCompleted:
		return nil, ErrPayoutInProgress
	default:
		return nil, ErrOrderNotEligible
	}
}

// CompletePayout фиксирует успешную выплату одной транзакцией: перевод
// payout_status в completed и зеркальное обновление балансов продавца.
// Строка продавца блокируется, чтобы сериализовать конкурентные выплаты
// по разным заказам одного продавца.
func (r *PostgresRepository) CompletePayout(ctx context.Context, orderID, payoutRef string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		var sellerID int64
		var earnings decimal.Decimal
		var status string
		err = tx.QueryRow(ctx,
			`SELECT seller_id, seller_earnings, payout_status FROM orders WHERE order_id = $1 FOR UPDATE`,
			orderID,
		).Scan(&sellerID, &earnings, &status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOrderNotFound
			}
			return fmt.Errorf("lock order: %w", err)
		}

		if err := model.ValidatePayoutTransition(model.PayoutStatus(status), model.PayoutCompleted); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE orders SET payout_status = $2, payout_ref = $3 WHERE order_id = $1`,
			orderID, string(model.PayoutCompleted), payoutRef,
		)
		if err != nil {
			return fmt.Errorf("update payout status: %w", err)
		}

		var dummy int
		err = tx.QueryRow(ctx,
			`SELECT 1 FROM seller_profiles WHERE user_id = $1 FOR UPDATE`,
			sellerID,
		).Scan(&dummy)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSellerNotFound
			}
			return fmt.Errorf("lock seller profile: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE seller_profiles
			 SET pending_payout = pending_payout - $2,
			     total_paid_out = total_paid_out + $2
			 WHERE user_id = $1`,
			sellerID, earnings.String(),
		)
		if err != nil {
			return fmt.Errorf("update seller balances: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		return nil
	})
}

// FailPayout переводит выплату в failed без изменения балансов.
func (r *PostgresRepository) FailPayout(ctx context.Context, orderID string) error {
	return r.conditionalPayoutUpdate(ctx, orderID, model.PayoutProcessing, model.PayoutFailed)
}

// ResetFailedPayout возвращает неудавшуюся выплату в pending для повторной попытки.
func (r *PostgresRepository) ResetFailedPayout(ctx context.Context, orderID string) error {
	return r.conditionalPayoutUpdate(ctx, orderID, model.PayoutFailed, model.PayoutPending)
}

func (r *PostgresRepository) conditionalPayoutUpdate(ctx context.Context, orderID string, from, to model.PayoutStatus) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET payout_status = $3 WHERE order_id = $1 AND payout_status = $2`,
		orderID, string(from), string(to),
	)
	if err != nil {
		return fmt.Errorf("update payout status: %w", err)
	}

	if cmdTag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_id = $1)`,
		orderID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("select order: %w", err)
	}
	if !exists {
		return ErrOrderNotFound
	}

	return model.ErrInvalidTransition
}

// GetEligiblePayoutOrders возвращает заказы, готовые к выплате:
// оплачены, доставлены, выплата не начата.
func (r *PostgresRepository) GetEligiblePayoutOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return r.selectOrders(ctx,
		`SELECT `+orderColumns+`
		 FROM orders
		 WHERE payment_status = $1 AND fulfillment_status = $2 AND payout_status = $3
		 ORDER BY created_at
		 LIMIT $4`,
		string(model.PaymentPaid), string(model.FulfillmentDelivered), string(model.PayoutPending),
		limit,
	)
}

// GetSellerProfile возвращает профиль продавца с балансами выплат.
func (r *PostgresRepository) GetSellerProfile(ctx context.Context, userID int64) (*model.SellerProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, phone, account_holder_name, account_number, ifsc_code, upi_id,
		        total_earnings, total_paid_out, pending_payout,
		        provider_contact_id, payout_enabled, push_token
		 FROM seller_profiles
		 WHERE user_id = $1`,
		userID,
	)

	var p model.SellerProfile
	err := row.Scan(&p.UserID, &p.Phone, &p.AccountHolderName, &p.AccountNumber, &p.IFSCCode, &p.UPIID,
		&p.TotalEarnings, &p.TotalPaidOut, &p.PendingPayout,
		&p.ProviderContactID, &p.PayoutEnabled, &p.PushToken)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSellerNotFound
		}
		return nil, fmt.Errorf("get seller profile: %w", err)
	}

	return &p, nil
}

// SaveBankDetails сохраняет платёжные реквизиты продавца. Флаг
// payout_enabled выставляется только при наличии валидного способа выплаты.
func (r *PostgresRepository) SaveBankDetails(ctx context.Context, p *model.SellerProfile) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE seller_profiles
		 SET phone = $2, account_holder_name = $3, account_number = $4,
		     ifsc_code = $5, upi_id = $6, payout_enabled = $7
		 WHERE user_id = $1`,
		p.UserID, p.Phone, p.AccountHolderName, p.AccountNumber,
		p.IFSCCode, p.UPIID, p.HasPayoutMethod(),
	)
	if err != nil {
		return fmt.Errorf("save bank details: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSellerNotFound
	}
	return nil
}

// SetProviderContactID сохраняет идентификатор контакта продавца у
// платёжного провайдера.
func (r *PostgresRepository) SetProviderContactID(ctx context.Context, userID int64, contactID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE seller_profiles SET provider_contact_id = $2 WHERE user_id = $1`,
		userID, contactID,
	)
	if err != nil {
		return fmt.Errorf("set provider contact: %w", err)
	}
	return nil
}

// SetPushToken сохраняет push-токен пользователя.
func (r *PostgresRepository) SetPushToken(ctx context.Context, userID int64, token string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE seller_profiles SET push_token = $2 WHERE user_id = $1`,
		userID, token,
	)
	if err != nil {
		return fmt.Errorf("set push token: %w", err)
	}
	return nil
}

// GetRevenueForPeriod возвращает сводку по оплаченным заказам, созданным
// в полуинтервале [from, to).
func (r *PostgresRepository) GetRevenueForPeriod(ctx context.Context, from, to time.Time) (*model.RevenueReport, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(item_price), 0),
		        COALESCE(SUM(platform_commission), 0),
		        COALESCE(SUM(seller_earnings), 0)
		 FROM orders
		 WHERE payment_status = $1 AND created_at >= $2 AND created_at < $3`,
		string(model.PaymentPaid), from, to,
	)

	var rep model.RevenueReport
	if err := row.Scan(&rep.TotalOrders, &rep.TotalSales, &rep.PlatformCommission, &rep.SellerEarnings); err != nil {
		return nil, fmt.Errorf("revenue for period: %w", err)
	}

	return &rep, nil
}

// GetTopSellers возвращает продавцов по убыванию заработка на оплаченных
// заказах. При равенстве заработка порядок детерминирован по идентификатору.
func (r *PostgresRepository) GetTopSellers(ctx context.Context, limit int) ([]model.TopSeller, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.seller_id, u.login, SUM(o.seller_earnings), COUNT(*)
		 FROM orders o
		 JOIN users u ON u.id = o.seller_id
		 WHERE o.payment_status = $1
		 GROUP BY o.seller_id, u.login
		 ORDER BY SUM(o.seller_earnings) DESC, o.seller_id
		 LIMIT $2`,
		string(model.PaymentPaid), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select top sellers: %w", err)
	}
	defer rows.Close()

	var res []model.TopSeller
	for rows.Next() {
		var s model.TopSeller
		if err := rows.Scan(&s.SellerID, &s.Login, &s.TotalEarnings, &s.TotalOrders); err != nil {
			return nil, fmt.Errorf("scan top seller: %w", err)
		}
		res = append(res, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetMethodBreakdown возвращает количество оплаченных заказов и комиссию
// платформы в разбивке по способу оплаты.
func (r *PostgresRepository) GetMethodBreakdown(ctx context.Context) (map[model.PaymentMethod]model.MethodBreakdown, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT payment_method, COUNT(*), COALESCE(SUM(platform_commission), 0)
		 FROM orders
		 WHERE payment_status = $1
		 GROUP BY payment_method`,
		string(model.PaymentPaid),
	)
	if err != nil {
		return nil, fmt.Errorf("select method breakdown: %w", err)
	}
	defer rows.Close()

	res := make(map[model.PaymentMethod]model.MethodBreakdown)
	for rows.Next() {
		var method string
		var b model.MethodBreakdown
		if err := rows.Scan(&method, &b.Orders, &b.Commission); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		res[model.PaymentMethod(method)] = b
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetPendingPayoutRows возвращает по каждому продавцу сумму и количество
// заказов, готовых к выплате. Только чтение, зеркало фильтра выплат.
func (r *PostgresRepository) GetPendingPayoutRows(ctx context.Context) ([]model.PendingPayoutRow, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT o.seller_id, u.login, SUM(o.seller_earnings), COUNT(*)
		 FROM orders o
		 JOIN users u ON u.id = o.seller_id
		 WHERE o.payment_status = $1 AND o.fulfillment_status = $2 AND o.payout_status = $3
		 GROUP BY o.seller_id, u.login
		 ORDER BY SUM(o.seller_earnings) DESC, o.seller_id`,
		string(model.PaymentPaid), string(model.FulfillmentDelivered), string(model.PayoutPending),
	)
	if err != nil {
		return nil, fmt.Errorf("select pending payouts: %w", err)
	}
	defer rows.Close()

	var res []model.PendingPayoutRow
	for rows.Next() {
		var row model.PendingPayoutRow
		if err := rows.Scan(&row.SellerID, &row.Login, &row.PendingAmount, &row.OrderCount); err != nil {
			return nil, fmt.Errorf("scan pending payout: %w", err)
		}
		res = append(res, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
