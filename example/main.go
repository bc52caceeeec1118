package main

import (
	"context"
	"fmt"

	"github.com/plantops/utilbalance/pkg/norms"
	"github.com/plantops/utilbalance/pkg/repositories/memory"
	"github.com/plantops/utilbalance/pkg/services"
)

func main() {
	ctx := context.Background()

	// Build a small steam network in memory
	repo := memory.NewSnapshotRepository()
	setupSteamNetwork(repo)

	snap, err := repo.LoadSnapshot(ctx)
	if err != nil {
		fmt.Printf("❌ snapshot failed: %v\n", err)
		return
	}

	fmt.Println("🏭 Balancing plant utilities for 2026-04...")
	fmt.Printf("Seed demand: %s MT SHP steam\n", snap.Demand[202604][1].Total())
	fmt.Println()

	service := services.NewBalanceService(services.Options{})
	report, err := service.ResolvePeriod(ctx, snap, 202604)
	if err != nil {
		fmt.Printf("❌ resolution failed: %v\n", err)
		return
	}

	fmt.Printf("📊 Converged in %d iterations\n", report.Iterations)
	for _, row := range report.Rows {
		fmt.Printf("  %-18s %12s %s\n", row.Code, row.Resolved.StringFixed(3), row.UOM)
	}
	for _, w := range report.Warnings {
		fmt.Printf("  ⚠️  %s\n", w)
	}
}

// setupSteamNetwork wires a miniature of a plant's utility network: SHP
// steam demand split across two HRSGs, each burning natural gas and
// consuming boiler feed water.
func setupSteamNetwork(repo *memory.SnapshotRepository) {
	utilities := []norms.Utility{
		{ID: 1, Code: "SHP_STEAM_DIS", Name: "SHP Steam_Dis", UOM: "MT", Type: norms.Steam, IsDistribution: true},
		{ID: 2, Code: "HRSG1_SHP_STEAM", Name: "HRSG1 SHP Steam", UOM: "MT", Type: norms.Steam},
		{ID: 3, Code: "HRSG2_SHP_STEAM", Name: "HRSG2 SHP Steam", UOM: "MT", Type: norms.Steam},
		{ID: 4, Code: "NATURAL_GAS", Name: "Natural Gas", UOM: "MMBTU", Type: norms.Gas},
		{ID: 5, Code: "BFW", Name: "Boiler Feed Water", UOM: "M3", Type: norms.Water},
	}
	for _, u := range utilities {
		repo.AddUtility(u)
	}

	edges := []norms.NormEdge{
		// HRSG1 takes a stated 40% share, HRSG2 the residual.
		{ID: 1, ConsumerID: 1, SupplierID: 2, Kind: norms.Distribution, Factor: norms.DecimalPtr("0.40"), Active: true},
		{ID: 2, ConsumerID: 1, SupplierID: 3, Kind: norms.Distribution, Active: true},
		{ID: 3, ConsumerID: 2, SupplierID: 4, Kind: norms.Conversion, Factor: norms.DecimalPtr("2.8064"), Active: true},
		{ID: 4, ConsumerID: 2, SupplierID: 5, Kind: norms.Conversion, Factor: norms.DecimalPtr("1.024"), Active: true},
		{ID: 5, ConsumerID: 3, SupplierID: 4, Kind: norms.Conversion, Factor: norms.DecimalPtr("2.8168"), Active: true},
		{ID: 6, ConsumerID: 3, SupplierID: 5, Kind: norms.Conversion, Factor: norms.DecimalPtr("1.024"), Active: true},
	}
	for _, e := range edges {
		repo.AddEdge(e)
	}

	repo.AddAsset(norms.SteamAsset{
		ID: 1, Name: "HRSG1", Type: norms.HRSG, SteamType: "SHP",
		MaxCapacityMT: norms.MustDecimal("75"), Efficiency: norms.MustDecimal("0.92"),
		IsAlwaysAvailable: true, Priority: 1,
	})
	repo.AddAsset(norms.SteamAsset{
		ID: 2, Name: "HRSG2", Type: norms.HRSG, SteamType: "SHP",
		MaxCapacityMT: norms.MustDecimal("75"), Efficiency: norms.MustDecimal("0.92"),
		IsAlwaysAvailable: true, Priority: 2,
	})
	repo.BindAsset(2, 1)
	repo.BindAsset(3, 2)

	repo.SetAvailability(202604, norms.AvailabilityRecord{AssetID: 1, Available: true, OperationalHours: norms.MustDecimal("720")})
	repo.SetAvailability(202604, norms.AvailabilityRecord{AssetID: 2, Available: true, OperationalHours: norms.MustDecimal("720")})

	repo.SetDemand(202604, norms.DemandRecord{
		UtilityID: 1,
		Process:   norms.MustDecimal("12000"),
		Fixed:     norms.MustDecimal("1000"),
	})
}
