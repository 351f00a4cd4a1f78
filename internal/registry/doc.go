// Package registry собирает реестр доступных агентов: опрашивает
// discovery-сервис, забирает карточку возможностей каждого агента и
// отдаёт неизменяемый снимок на время жизни session.
//
// Агент без карточки пропускается; собственный graph роутера
// исключается. Пустой реестр — валидное состояние: планировщик
// построит пустой план, а агрегатор честно ответит, что делать
// запрос некому.
package registry
