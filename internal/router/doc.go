// Package router — контроллер session: ведёт пользовательский запрос
// через машину состояний валидация → планирование → (одобрение) →
// выполнение → анализ → агрегация.
//
// Контроллер событийный: подписан на очереди sessions.pending и
// sessions.decision, а параллельно опрашивает БД — потерянное событие
// не теряет session. Все решения о содержании (валидность запроса,
// состав плана, достаточность результатов, финальный ответ) принимает
// оракул; контроллер отвечает за переходы, бюджет перепланирований и
// деградацию при отказах оракула: валидация fail-closed, анализ
// fail-open, агрегация всегда отдаёт хоть какой-то ответ.
//
// Единственная приостановка — ожидание внешнего решения по плану:
// session сохраняется в БД и возобновляется событием или опросом,
// переживая рестарт процесса.
package router
