// Package executor — планировщик выполнения плана по графу зависимостей.
//
// Выполнение идёт раундами: в каждом раунде считается множество готовых
// задач (все зависимости завершены успешно), оно целиком раздаётся
// агентам параллельно, раунд закрывается после завершения всех вызовов.
// Падение одной task не отменяет её соседей по раунду — их результаты
// дожидаются и сохраняются. Задачи с упавшей зависимостью помечаются
// упавшими без dispatch; пустое множество готовых при оставшихся
// задачах означает неразрешимый граф, остаток помечается упавшим.
// Число раундов ограничено len(tasks)+1 — защита от зацикливания.
package executor
