package main

import (
	"fmt"

	"steel-store/internal/repository"
	"steel-store/internal/seed"
	"steel-store/internal/service"
	"steel-store/internal/storage"

	"github.com/spf13/cobra"
)

// storectl seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the starter category and product",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := boot()
		if err != nil {
			return err
		}
		defer a.close()

		ctx := cmd.Context()

		disk, err := storage.New(ctx, a.cfg.Storage, a.cfg.Server.PublicURL)
		if err != nil {
			return err
		}

		db := a.dbSvc.DB()
		catalog := service.NewCatalogService(
			repository.NewProductRepository(db),
			repository.NewCategoryRepository(db),
			repository.NewReviewRepository(db),
			storage.NewImageStore(disk),
		)

		created, err := seed.Catalog(ctx, catalog, a.log)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), "seeded starter catalog")
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), "starter catalog already present")
		}
		return nil
	},
}
