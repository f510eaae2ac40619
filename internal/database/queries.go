package database

// Catalog queries
const (
	GetTablesSQL = `
		SELECT id, name
		FROM tables
		ORDER BY name`

	GetProductsSQL = `
		SELECT id, name, unit_price, category
		FROM products
		ORDER BY category, name`

	GetProductByIDSQL = `
		SELECT id, name, unit_price, category
		FROM products WHERE id = $1`

	GetTableByIDSQL = `
		SELECT id, name
		FROM tables WHERE id = $1`
)

// Order queries
const (
	// ResolveOrderSQL is a single atomic upsert against the partial unique
	// index on (table_id) WHERE status = 'open'. A concurrent resolve for
	// the same table lands on the same open row and only refreshes the
	// party size.
	ResolveOrderSQL = `
		INSERT INTO orders (table_id, party_size, status)
		VALUES ($1, $2, 'open')
		ON CONFLICT (table_id) WHERE status = 'open'
		DO UPDATE SET party_size = EXCLUDED.party_size
		RETURNING id, table_id, party_size, status, created_at, closed_at, (xmax = 0) AS created`

	GetOrderSQL = `
		SELECT id, table_id, party_size, status, created_at, closed_at
		FROM orders WHERE id = $1`

	// InsertLineItemSQL writes nothing unless the order is still open, so
	// an append against a finalized order is a no-op the store can report.
	InsertLineItemSQL = `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		SELECT $1, $2, $3, $4
		WHERE EXISTS (SELECT 1 FROM orders WHERE id = $1 AND status = 'open')`

	GetLineItemsSQL = `
		SELECT p.name, i.quantity, i.unit_price, (i.quantity * i.unit_price) AS subtotal
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY p.name`

	GetOrderTotalSQL = `
		SELECT COALESCE(SUM(quantity * unit_price), 0)
		FROM order_items WHERE order_id = $1`

	FinalizeOrderSQL = `
		UPDATE orders SET status = 'paid', closed_at = NOW()
		WHERE id = $1 AND status = 'open'
		RETURNING closed_at`
)
