package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"inspiranet/internal/database"
	"inspiranet/internal/migrations"
	"inspiranet/internal/models"
)

func main() {
	dbPath := flag.String("db", "./inspiranet.db", "Path to the database file")
	list := flag.Bool("list", false, "List embedded migrations without applying them")
	create := flag.Bool("create", false, "Create the database file if it does not exist")
	flag.Parse()

	all, err := migrations.All()
	if err != nil {
		log.Fatalf("Failed to load migrations: %v", err)
	}

	if *list {
		for _, m := range all {
			fmt.Println(m.Name)
		}
		return
	}

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) && !*create {
		log.Fatalf("Database file not found: %s (use -create to initialize it)", *dbPath)
	}

	fmt.Printf("Applying %d migrations to %s\n", len(all), *dbPath)

	// Opening the database applies every embedded migration.
	db, err := database.New(models.DatabaseConfig{Path: *dbPath, MaxOpenConnections: 1})
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	defer db.Close()

	for i, m := range all {
		fmt.Printf("Applied step %d/%d: %s\n", i+1, len(all), m.Name)
	}
	fmt.Println("Database schema is up to date")
}
