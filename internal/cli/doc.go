// Package cli реализует инструмент командной строки Dirigent.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Dirigent API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для отправки запросов на оркестрацию, просмотра
// sessions и их задач, и для принятия решений по планам
// (approve / modify / reject).
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Dirigent API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	sessions, err := client.ListSessions(cli.ListSessionsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: dirigent session list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - session: submit, list, show, tasks, approve, reject, modify
//   - agents: список обнаруженных агентов
//
// Каждая группа создаётся через фабричную функцию (NewSessionCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
