// Package engine строит граф зависимостей задач плана и проверяет его
// структурную корректность: уникальность ID, разрешимость зависимостей,
// отсутствие самозависимостей и циклов (алгоритм Кана).
//
// Граф — чистая структура данных: он не выполняет задачи, а отвечает на
// вопросы планировщика — какие задачи готовы к запуску при данном
// множестве завершённых и какие блокируются упавшими зависимостями.
package engine
