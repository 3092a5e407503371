// Package repository persists invoices and line items with gorm so a
// dataset can be reloaded later. Summaries are never stored; they are
// rebuilt by folding the loaded records.
package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Config selects the database backend
type Config struct {
	Driver string // sqlite or postgres
	DSN    string
	Debug  bool
}

type invoiceRow struct {
	ID           uint   `gorm:"primaryKey"`
	Number       string `gorm:"uniqueIndex;not null"`
	Series       string
	IssueDate    string
	Operation    string
	PrintType    string
	EmissionType string

	CustomerName    string
	CustomerCNPJ    string `gorm:"index"`
	CustomerAddress string

	TotalAmount decimal.Decimal `gorm:"type:text"`
	Freight     decimal.Decimal `gorm:"type:text"`
	Discount    decimal.Decimal `gorm:"type:text"`

	ICMSRate     string
	ICMSAmount   decimal.Decimal `gorm:"type:text"`
	PISRate      string
	PISAmount    decimal.Decimal `gorm:"type:text"`
	COFINSRate   string
	COFINSAmount decimal.Decimal `gorm:"type:text"`

	ItemCount int
}

func (invoiceRow) TableName() string { return "invoices" }

type lineItemRow struct {
	ID            uint   `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"index;not null"`

	Code string
	Name string
	NCM  string

	Quantity  decimal.Decimal `gorm:"type:text"`
	UnitPrice decimal.Decimal `gorm:"type:text"`
	Total     decimal.Decimal `gorm:"type:text"`

	ICMSRate     string
	ICMSAmount   decimal.Decimal `gorm:"type:text"`
	PISRate      string
	PISAmount    decimal.Decimal `gorm:"type:text"`
	COFINSRate   string
	COFINSAmount decimal.Decimal `gorm:"type:text"`
}

func (lineItemRow) TableName() string { return "line_items" }

// Repository stores records in a SQL database
type Repository struct {
	db *gorm.DB
}

// Open connects to the configured database and migrates the schema
func Open(cfg Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := logger.Silent
	if cfg.Debug {
		logLevel = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema
func New(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&invoiceRow{}, &lineItemRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save writes one invoice and its items in a single transaction
func (r *Repository) Save(ctx context.Context, inv *model.Invoice, items []model.LineItem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toInvoiceRow(inv)
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to save invoice %s: %w", inv.Number, err)
		}
		if len(items) == 0 {
			return nil
		}
		rows := make([]lineItemRow, 0, len(items))
		for i := range items {
			rows = append(rows, toLineItemRow(&items[i]))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save items of invoice %s: %w", inv.Number, err)
		}
		return nil
	})
}

// Load returns every stored record in insertion order
func (r *Repository) Load(ctx context.Context) ([]model.Invoice, []model.LineItem, error) {
	db := r.db.WithContext(ctx)

	var invRows []invoiceRow
	if err := db.Order("id").Find(&invRows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	var itemRows []lineItemRow
	if err := db.Order("id").Find(&itemRows).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load line items: %w", err)
	}

	invoices := make([]model.Invoice, 0, len(invRows))
	for _, row := range invRows {
		invoices = append(invoices, row.toModel())
	}
	items := make([]model.LineItem, 0, len(itemRows))
	for _, row := range itemRows {
		items = append(items, row.toModel())
	}
	return invoices, items, nil
}

// Clear deletes every stored record
func (r *Repository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&lineItemRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear line items: %w", err)
		}
		if err := all.Delete(&invoiceRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear invoices: %w", err)
		}
		return nil
	})
}

// Close releases the underlying connection pool
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toInvoiceRow(inv *model.Invoice) invoiceRow {
	return invoiceRow{
		Number:          inv.Number,
		Series:          inv.Series,
		IssueDate:       inv.IssueDate,
		Operation:       inv.Operation,
		PrintType:       inv.PrintType,
		EmissionType:    inv.EmissionType,
		CustomerName:    inv.Customer.Name,
		CustomerCNPJ:    inv.Customer.CNPJ,
		CustomerAddress: inv.Customer.Address,
		TotalAmount:     inv.TotalAmount,
		Freight:         inv.Freight,
		Discount:        inv.Discount,
		ICMSRate:        inv.ICMS.Rate,
		ICMSAmount:      inv.ICMS.Amount,
		PISRate:         inv.PIS.Rate,
		PISAmount:       inv.PIS.Amount,
		COFINSRate:      inv.COFINS.Rate,
		COFINSAmount:    inv.COFINS.Amount,
		ItemCount:       inv.ItemCount,
	}
}

func (row invoiceRow) toModel() model.Invoice {
	return model.Invoice{
		Number:       row.Number,
		Series:       row.Series,
		IssueDate:    row.IssueDate,
		Operation:    row.Operation,
		PrintType:    row.PrintType,
		EmissionType: row.EmissionType,
		Customer: model.Party{
			Name:    row.CustomerName,
			CNPJ:    row.CustomerCNPJ,
			Address: row.CustomerAddress,
		},
		TotalAmount: row.TotalAmount,
		Freight:     row.Freight,
		Discount:    row.Discount,
		ICMS:        model.TaxComponent{Rate: row.ICMSRate, Amount: row.ICMSAmount},
		PIS:         model.TaxComponent{Rate: row.PISRate, Amount: row.PISAmount},
		COFINS:      model.TaxComponent{Rate: row.COFINSRate, Amount: row.COFINSAmount},
		ItemCount:   row.ItemCount,
	}
}

func toLineItemRow(item *model.LineItem) lineItemRow {
	return lineItemRow{
		InvoiceNumber: item.InvoiceNumber,
		Code:          item.Code,
		Name:          item.Name,
		NCM:           item.NCM,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		Total:         item.Total,
		ICMSRate:      item.ICMS.Rate,
		ICMSAmount:    item.ICMS.Amount,
		PISRate:       item.PIS.Rate,
		PISAmount:     item.PIS.Amount,
		COFINSRate:    item.COFINS.Rate,
		COFINSAmount:  item.COFINS.Amount,
	}
}

func (row lineItemRow) toModel() model.LineItem {
	return model.LineItem{
		InvoiceNumber: row.InvoiceNumber,
		Code:          row.Code,
		Name:          row.Name,
		NCM:           row.NCM,
		Quantity:      row.Quantity,
		UnitPrice:     row.UnitPrice,
		Total:         row.Total,
		ICMS:          model.TaxComponent{Rate: row.ICMSRate, Amount: row.ICMSAmount},
		PIS:           model.TaxComponent{Rate: row.PISRate, Amount: row.PISAmount},
		COFINS:        model.TaxComponent{Rate: row.COFINSRate, Amount: row.COFINSAmount},
	}
}
