// Command intakectl - служебные операции мастера заказа: оценка стоимости,
// перевод черновика в словарь сервиса заказов, миграции, импорт словаря и выпуск dev-токенов.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
