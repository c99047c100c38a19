// Package main implements a standalone seed script that populates the
// marketplace with realistic test data: vendors, moderated product listings
// with variants, and a handful of placed orders. Vendors, products, and
// moderation decisions go through the HTTP API so the full moderation
// lifecycle runs; inventory top-ups use direct SQL because restocking has no
// public endpoint.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// --------------------------------------------------------------------------
// Configuration helpers
// --------------------------------------------------------------------------

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func baseURL() string {
	return getEnv("MARKETPLACE_URL", "http://localhost:8010")
}

// --------------------------------------------------------------------------
// HTTP helpers
// --------------------------------------------------------------------------

// doRequest performs a JSON request with gateway identity headers.
func doRequest(method, url, userID, role string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	req.Header.Set("X-User-Role", role)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return result, nil
}

func asAdmin(method, url string, body any) (map[string]any, error) {
	return doRequest(method, url, "seed-admin", "admin", body)
}

func asVendor(vendorID, method, url string, body any) (map[string]any, error) {
	return doRequest(method, url, vendorID, "vendor", body)
}

func asCustomer(customerID, method, url string, body any) (map[string]any, error) {
	return doRequest(method, url, customerID, "customer", body)
}

// dataField extracts data.<field> from a decoded API response.
func dataField(resp map[string]any, field string) string {
	data, ok := resp["data"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := data[field].(string)
	return s
}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type vendorDef struct {
	name      string
	email     string
	rateBps   int
	id        string // populated after insert
	productID []string
}

type variantDef struct {
	name      string
	sku       string
	price     int64
	inventory int
}

type productDef struct {
	name        string
	description string
	price       int64
	variants    []variantDef
	reject      bool // moderation outcome
	keepDraft   bool // never submitted
}

var vendors = []vendorDef{
	{name: "Oak & Iron Workshop", email: "hello@oakandiron.test", rateBps: 1500},
	{name: "Lumen Lighting Co", email: "sales@lumenlighting.test", rateBps: 1200},
	{name: "Verdant Home Goods", email: "support@verdanthome.test", rateBps: 2000},
	{name: "Nordica Textiles", email: "orders@nordica.test", rateBps: 1000},
}

func productsFor(vendorIdx int) []productDef {
	catalogs := [][]productDef{
		{
			{name: "Walnut Desk Organizer", description: "Solid walnut organizer with felt lining", price: 5900, variants: []variantDef{
				{name: "Small", sku: "WDO-S", price: 5900, inventory: 120},
				{name: "Large", sku: "WDO-L", price: 7900, inventory: 80},
			}},
			{name: "Cast Iron Bookends", description: "Pair of matte black cast iron bookends", price: 3400, variants: []variantDef{
				{name: "Standard", sku: "CIB-STD", price: 3400, inventory: 200},
			}},
			{name: "Reclaimed Oak Shelf", description: "Floating shelf from reclaimed oak", price: 8900, keepDraft: true, variants: []variantDef{
				{name: "60cm", sku: "ROS-60", price: 8900, inventory: 40},
			}},
		},
		{
			{name: "Brass Desk Lamp", description: "Adjustable brass lamp with dimmer", price: 12900, variants: []variantDef{
				{name: "Brass", sku: "BDL-BR", price: 12900, inventory: 60},
				{name: "Matte Black", sku: "BDL-BK", price: 12900, inventory: 55},
			}},
			{name: "Paper Pendant Light", description: "Rice paper pendant, 40cm diameter", price: 4500, variants: []variantDef{
				{name: "White", sku: "PPL-WH", price: 4500, inventory: 150},
			}},
			{name: "Neon Wall Sign", description: "Custom neon sign, flickers on purpose", price: 19900, reject: true, variants: []variantDef{
				{name: "Pink", sku: "NWS-PK", price: 19900, inventory: 10},
			}},
		},
		{
			{name: "Ceramic Planter Set", description: "Set of three glazed planters", price: 6700, variants: []variantDef{
				{name: "Terracotta", sku: "CPS-TC", price: 6700, inventory: 90},
				{name: "Sage", sku: "CPS-SG", price: 6700, inventory: 85},
			}},
			{name: "Hand-Poured Candle", description: "Soy wax, cedar and bergamot", price: 2800, variants: []variantDef{
				{name: "8oz", sku: "HPC-8", price: 2800, inventory: 300},
				{name: "16oz", sku: "HPC-16", price: 4600, inventory: 180},
			}},
		},
		{
			{name: "Linen Throw Blanket", description: "Stonewashed linen, 130x170cm", price: 9800, variants: []variantDef{
				{name: "Natural", sku: "LTB-NAT", price: 9800, inventory: 70},
				{name: "Charcoal", sku: "LTB-CH", price: 9800, inventory: 65},
			}},
			{name: "Wool Lumbar Pillow", description: "Hand-loomed wool cover with insert", price: 5400, variants: []variantDef{
				{name: "Standard", sku: "WLP-STD", price: 5400, inventory: 110},
			}},
		},
	}
	return catalogs[vendorIdx%len(catalogs)]
}

var customerIDs = []string{
	"11111111-1111-4111-8111-111111111101",
	"11111111-1111-4111-8111-111111111102",
	"11111111-1111-4111-8111-111111111103",
}

const seedAddressID = "22222222-2222-4222-8222-222222222201"

// --------------------------------------------------------------------------
// Seeding steps
// --------------------------------------------------------------------------

func seedVendors() error {
	for i := range vendors {
		v := &vendors[i]
		resp, err := asAdmin(http.MethodPost, baseURL()+"/api/v1/vendors", map[string]any{
			"name":                v.name,
			"email":               v.email,
			"commission_rate_bps": v.rateBps,
		})
		if err != nil {
			return fmt.Errorf("create vendor %q: %w", v.name, err)
		}
		v.id = dataField(resp, "id")
		log.Printf("vendor %q -> %s", v.name, v.id)
	}
	return nil
}

func seedProducts() error {
	for i := range vendors {
		v := &vendors[i]
		for _, p := range productsFor(i) {
			variants := make([]map[string]any, 0, len(p.variants))
			for _, vr := range p.variants {
				variants = append(variants, map[string]any{
					"name":      vr.name,
					"sku":       vr.sku,
					"price":     vr.price,
					"inventory": vr.inventory,
				})
			}
			resp, err := asVendor(v.id, http.MethodPost, baseURL()+"/api/v1/products", map[string]any{
				"name":        p.name,
				"description": p.description,
				"price":       p.price,
				"currency":    "USD",
				"variants":    variants,
			})
			if err != nil {
				return fmt.Errorf("create product %q: %w", p.name, err)
			}
			productID := dataField(resp, "id")
			v.productID = append(v.productID, productID)

			if p.keepDraft {
				log.Printf("product %q -> %s (left as draft)", p.name, productID)
				continue
			}

			if _, err := asVendor(v.id, http.MethodPost, baseURL()+"/api/v1/products/"+productID+"/submit", nil); err != nil {
				return fmt.Errorf("submit product %q: %w", p.name, err)
			}

			decision := "approved"
			notes := "meets listing standards"
			if p.reject {
				decision = "rejected"
				notes = "photos do not match the listed item"
			}
			if _, err := asAdmin(http.MethodPost, baseURL()+"/api/v1/products/"+productID+"/moderation", map[string]any{
				"decision": decision,
				"notes":    notes,
			}); err != nil {
				return fmt.Errorf("moderate product %q: %w", p.name, err)
			}

			if decision == "approved" {
				if _, err := asVendor(v.id, http.MethodPut, baseURL()+"/api/v1/products/"+productID+"/active", map[string]any{
					"active": true,
				}); err != nil {
					return fmt.Errorf("activate product %q: %w", p.name, err)
				}
			}
			log.Printf("product %q -> %s (%s)", p.name, productID, decision)
		}
	}
	return nil
}

// purchasableVariants loads (product_id, variant_id) pairs for listings a
// shopper can actually buy, straight from the database.
func purchasableVariants(ctx context.Context, pool *pgxpool.Pool) ([][2]string, error) {
	rows, err := pool.Query(ctx, `
		SELECT pv.product_id, pv.id
		FROM product_variants pv
		JOIN products p ON p.id = pv.product_id
		JOIN vendors v ON v.id = p.vendor_id
		WHERE p.status = 'approved' AND p.is_active AND v.is_active AND pv.inventory > 0`)
	if err != nil {
		return nil, fmt.Errorf("query purchasable variants: %w", err)
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var productID, variantID string
		if err := rows.Scan(&productID, &variantID); err != nil {
			return nil, fmt.Errorf("scan variant row: %w", err)
		}
		pairs = append(pairs, [2]string{productID, variantID})
	}
	return pairs, rows.Err()
}

func seedOrders(ctx context.Context, pool *pgxpool.Pool) error {
	pairs, err := purchasableVariants(ctx, pool)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no purchasable variants found; product seeding may have failed")
	}

	for _, customerID := range customerIDs {
		// Each customer orders 1-3 random lines.
		count := 1 + rand.Intn(3)
		lines := make([]map[string]any, 0, count)
		seen := map[string]bool{}
		for len(lines) < count {
			pair := pairs[rand.Intn(len(pairs))]
			if seen[pair[1]] {
				continue
			}
			seen[pair[1]] = true
			lines = append(lines, map[string]any{
				"product_id": pair[0],
				"variant_id": pair[1],
				"quantity":   1 + rand.Intn(3),
			})
		}

		resp, err := asCustomer(customerID, http.MethodPost, baseURL()+"/api/v1/orders", map[string]any{
			"lines":               lines,
			"shipping_address_id": seedAddressID,
			"billing_address_id":  seedAddressID,
			"payment_method":      "card",
		})
		if err != nil {
			return fmt.Errorf("place order for %s: %w", customerID, err)
		}
		log.Printf("order %s placed for customer %s (%d lines)", dataField(resp, "id"), customerID, len(lines))
	}
	return nil
}

// restock bumps every variant back above a floor so the seed can be re-run
// without draining inventory. Restocking has no public endpoint.
func restock(ctx context.Context, pool *pgxpool.Pool) error {
	tag, err := pool.Exec(ctx,
		`UPDATE product_variants SET inventory = 50 WHERE inventory < 50`)
	if err != nil {
		return fmt.Errorf("restock variants: %w", err)
	}
	log.Printf("restocked %d variants", tag.RowsAffected())
	return nil
}

// --------------------------------------------------------------------------
// Main
// --------------------------------------------------------------------------

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("POSTGRES_USER", "postgres"),
		getEnv("POSTGRES_PASSWORD", "postgres"),
		getEnv("POSTGRES_HOST", "localhost"),
		getEnv("POSTGRES_PORT", "5432"),
		getEnv("POSTGRES_DB", "marketplace_db"),
	)
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("ping postgres: %v", err)
	}

	start := time.Now()
	log.Printf("seeding marketplace at %s", baseURL())

	if err := seedVendors(); err != nil {
		log.Fatalf("seed vendors: %v", err)
	}
	if err := seedProducts(); err != nil {
		log.Fatalf("seed products: %v", err)
	}
	if err := seedOrders(ctx, pool); err != nil {
		log.Fatalf("seed orders: %v", err)
	}
	if err := restock(ctx, pool); err != nil {
		log.Fatalf("restock: %v", err)
	}

	log.Printf("seed complete in %s", time.Since(start).Round(time.Millisecond))
}
