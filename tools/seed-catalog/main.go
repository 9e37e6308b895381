package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/yashrajoria/pharmacy-agent/database"
	awspkg "github.com/yashrajoria/pharmacy-agent/pkg/aws"
	"github.com/yashrajoria/pharmacy-agent/repository"
)

func main() {
	var csvPath, table, region string
	flag.StringVar(&csvPath, "csv", os.Getenv("SEED_CATALOG_CSV"), "CSV file with name,stock,price,requires_prescription")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB products table")
	flag.StringVar(&region, "region", os.Getenv("AWS_REGION"), "AWS region")
	flag.Parse()

	if csvPath == "" {
		log.Fatal("SEED_CATALOG_CSV must be set or provided via -csv")
	}
	if table == "" {
		table = "Medicines"
	}

	f, err := os.Open(csvPath)
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	products, err := repository.ReadProductsCSV(f)
	if err != nil {
		log.Fatalf("parse csv: %v", err)
	}

	ctx := context.Background()
	awsCfg, err := awspkg.LoadAWSConfig(ctx, region)
	if err != nil {
		log.Fatalf("aws config: %v", err)
	}
	// Orders are never written by this tool.
	repo := repository.NewDynamoInventoryRepository(database.NewDynamoClient(awsCfg), table, "")

	var count int
	for _, p := range products {
		if err := repo.PutProduct(ctx, p); err != nil {
			log.Printf("failed to write product %s: %v", p.Name, err)
			continue
		}
		count++
	}
	fmt.Printf("Seed complete. written=%d skipped=%d\n", count, len(products)-count)
}
