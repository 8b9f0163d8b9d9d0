package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"skyspark_sync/config"
	"skyspark_sync/database"
	"skyspark_sync/logger"
	"skyspark_sync/models"
	"skyspark_sync/pipeline"
	"skyspark_sync/skyspark"
	"skyspark_sync/store"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		return
	}

	command := os.Args[1]

	// Initialize logging only for commands that need it
	if needsLogging(command) {
		cfg := loadConfig()
		if err := logger.Init(cfg); err != nil {
			log.Fatalf("Failed to initialize logging: %v", err)
		}
		defer func() {
			err := logger.Close()
			if err != nil {
				log.Fatalf("Failed to close logging: %v", err)
			}
		}()
		logger.LogCommand(os.Args[0], os.Args)
	}

	switch command {
	case "connect":
		connectCommand()
	case "migrate":
		migrateCommand()
	case "sync":
		syncCommand()
	case "db:info":
		dbInfoCommand()
	case "test:insert":
		testInsertCommand()
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		showHelp()
	}
}

// needsLogging determines which commands need logging
func needsLogging(command string) bool {
	loggingCommands := map[string]bool{
		"connect":     true,
		"migrate":     true,
		"sync":        true,
		"test:insert": true,
	}
	return loggingCommands[command]
}

func showHelp() {
	fmt.Println("SkySpark Sync - Building Telemetry Ingestion Tool")
	fmt.Println("")
	fmt.Println("Usage: go run main.go <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  connect              Test database connection")
	fmt.Println("  migrate              Create or update the database schema")
	fmt.Println("  sync                 Fetch new sensor readings and import them")
	fmt.Println("  db:info              Show database information")
	fmt.Println("  test:insert          Insert a sample reading hierarchy")
	fmt.Println("  help                 Show this help message")
	fmt.Println("")
	fmt.Println("Configuration:")
	fmt.Println("  Edit config.yaml to configure database and API settings")
	fmt.Println("  SKYSPARK_KEY overrides the configured API key")
}

func loadConfig() *config.Config {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return cfg
}

func connectDatabase() (*config.Config, error) {
	cfg := loadConfig()

	_, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return cfg, nil
}

func connectCommand() {
	logger.Println("Testing database connection...")

	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Connection failed: %v", err)
	}

	logger.Printf("✓ Successfully connected to %s database\n", cfg.Database.Driver)

	// Show connection info
	info := database.GetDatabaseInfo(cfg)
	infoJSON, _ := json.MarshalIndent(info, "", "  ")
	logger.Printf("Connection info: %s\n", infoJSON)
}

func migrateCommand() {
	logger.Println("Creating database schema...")

	_, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(database.GetDB()); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	logger.Println("✓ Schema is up to date")
}

func syncCommand() {
	cfg, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := cfg.ValidateSkySpark(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	if err := database.Migrate(database.GetDB()); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	client := skyspark.NewClient(cfg.SkySpark)
	syncer := pipeline.NewSyncer(client, store.New(database.GetDB()))

	counts, err := syncer.Run(context.Background())
	if err != nil {
		logger.Fatalf("Sync failed: %v", err)
	}

	logger.Println("✓ Sync completed successfully")
	logger.Printf("  Buildings:  %d\n", counts.BuildingsTouched)
	logger.Printf("  Locations:  %d\n", counts.LocationsTouched)
	logger.Printf("  Indicators: %d\n", counts.IndicatorsTouched)
	logger.Printf("  Units:      %d\n", counts.UnitsTouched)
	logger.Printf("  Values:     %d\n", counts.ValuesInserted)
}

func dbInfoCommand() {
	fmt.Println("Database Information:")
	fmt.Println(strings.Repeat("=", 50))

	cfg, err := connectDatabase()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	info := database.GetDatabaseInfo(cfg)

	// Display basic database info
	fmt.Printf("Database Type:     %v\n", info["driver"])
	fmt.Printf("Connection Status: %v\n", getConnectionStatusText(info["connected"]))

	// Display database-specific connection details
	switch cfg.Database.Driver {
	case "mysql", "postgres":
		fmt.Printf("Host:              %v\n", info["host"])
		fmt.Printf("Port:              %v\n", info["port"])
		fmt.Printf("Database:          %v\n", info["database"])
	case "sqlite":
		fmt.Printf("File Path:         %v\n", info["path"])
	}

	// Display connection pool information if available
	if info["connected"] == true {
		fmt.Println("\nConnection Pool:")
		fmt.Printf("  Max Connections: %v\n", info["max_open_connections"])
		fmt.Printf("  Open Connections:%v\n", info["open_connections"])
		fmt.Printf("  In Use:          %v\n", info["in_use"])
		fmt.Printf("  Idle:            %v\n", info["idle"])

		db := database.GetDB()
		fmt.Println("\nData Information:")

		var buildingCount, locationCount, indicatorCount, unitCount, valueCount int64
		db.Model(&models.Building{}).Count(&buildingCount)
		db.Model(&models.Location{}).Count(&locationCount)
		db.Model(&models.Indicator{}).Count(&indicatorCount)
		db.Model(&models.Unit{}).Count(&unitCount)
		db.Model(&models.Value{}).Count(&valueCount)

		fmt.Printf("  Buildings:       %d\n", buildingCount)
		fmt.Printf("  Locations:       %d\n", locationCount)
		fmt.Printf("  Indicators:      %d\n", indicatorCount)
		fmt.Printf("  Units:           %d\n", unitCount)
		fmt.Printf("  Values:          %d\n", valueCount)

		if valueCount > 0 {
			var earliest, latest time.Time
			db.Model(&models.Value{}).Select("MIN(timestamp)").Scan(&earliest)
			db.Model(&models.Value{}).Select("MAX(timestamp)").Scan(&latest)
			fmt.Printf("  Date Range:      %s to %s\n",
				earliest.Format("2006-01-02 15:04:05"),
				latest.Format("2006-01-02 15:04:05"))
		}
	} else {
		fmt.Println("\nConnection failed - unable to retrieve detailed information")
	}

	fmt.Println(strings.Repeat("=", 50))
}

func getConnectionStatusText(connected interface{}) string {
	if conn, ok := connected.(bool); ok && conn {
		return "✓ Connected"
	}
	return "✗ Disconnected"
}

func testInsertCommand() {
	logger.Println("Inserting a sample reading hierarchy...")

	_, err := connectDatabase()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(database.GetDB()); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}

	sample := []pipeline.TidyRow{
		{
			BuildingName:      "JCK",
			Location:          "South Office",
			ModalityIndicator: "CO2-co2",
			Unit:              "ppm",
			Timestamp:         time.Now().UTC(),
			Value:             482.0,
		},
		{
			BuildingName:      "JCK",
			Location:          "South Office",
			ModalityIndicator: "Temp-air-temp",
			Unit:              "°F",
			Timestamp:         time.Now().UTC().Add(1 * time.Minute),
			Value:             71.5,
		},
		{
			BuildingName:      "JCK",
			Location:          "Mechanical Room",
			ModalityIndicator: "Particulates-pm2.5",
			Unit:              "µg/m³",
			Timestamp:         time.Now().UTC().Add(2 * time.Minute),
			Value:             9.8,
		},
	}

	s := store.New(database.GetDB())
	var counts pipeline.Counts
	err = s.Transaction(func(tx *store.Store) error {
		c, err := pipeline.Ingest(sample, tx)
		if err != nil {
			return err
		}
		counts = c
		return nil
	})
	if err != nil {
		logger.Fatalf("Failed to insert sample data: %v", err)
	}

	logger.Printf("✓ Inserted %d value(s) across %d building(s), %d location(s)\n",
		counts.ValuesInserted, counts.BuildingsTouched, counts.LocationsTouched)
}
